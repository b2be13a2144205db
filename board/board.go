// Package board owns the partition of stories across the board sections and
// persists it after every change.
package board

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

// StateKey is the storage key of the serialized partition.
const StateKey = "kanbanState"

// Backend is the persistence adapter consumed by the board.
type Backend interface {
	// Load returns the stored blob and whether one exists.
	Load(ctx context.Context, key string) ([]byte, bool, error)
	// Save overwrites the blob stored under key.
	Save(ctx context.Context, key string, data []byte) error
}

// PersistError reports a failed save. The transition that triggered it has
// already been applied in memory.
type PersistError struct {
	Key string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Key, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Board is the single owner of the story partition. All mutations go through
// Create, Move and Delete and are serialized.
type Board struct {
	mu      sync.Mutex
	part    domain.Partition
	backend Backend
	logger  *log.Logger
	newID   func() string
	now     func() time.Time

	listeners    map[uint64]func(domain.Partition)
	nextListener uint64
}

// Option configures a Board.
type Option func(*Board)

func WithLogger(l *log.Logger) Option {
	return func(b *Board) { b.logger = l }
}

// WithIDGenerator replaces the story id source.
func WithIDGenerator(fn func() string) Option {
	return func(b *Board) { b.newID = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(b *Board) { b.now = fn }
}

// Open restores the board from backend. A missing blob yields an empty
// board; a malformed one is discarded with a warning.
func Open(ctx context.Context, backend Backend, opts ...Option) (*Board, error) {
	if backend == nil {
		return nil, fmt.Errorf("board: backend is required")
	}
	b := &Board{
		part:      domain.NewPartition(),
		backend:   backend,
		logger:    log.StandardLogger(),
		newID:     func() string { return "story-" + uuid.NewString() },
		now:       time.Now,
		listeners: make(map[uint64]func(domain.Partition)),
	}
	for _, opt := range opts {
		opt(b)
	}

	data, ok, err := backend.Load(ctx, StateKey)
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	if !ok {
		b.logger.Debug("no stored board, starting empty")
		return b, nil
	}
	part, err := domain.DecodePartition(data)
	if err != nil {
		b.logger.WithError(err).Warn("stored board is malformed, starting empty")
		return b, nil
	}
	if dropped, retagged := part.Normalize(); dropped > 0 || retagged > 0 {
		b.logger.WithFields(log.Fields{"dropped": dropped, "retagged": retagged}).Warn("stored board had invalid stories, repaired")
	}
	if removed := part.Dedupe(); removed > 0 {
		b.logger.WithField("removed", removed).Warn("stored board violated the partition invariant, repaired")
	}
	b.part = part
	b.logger.WithField("stories", part.Len()).Info("board restored")
	return b, nil
}

// Create appends a new story to section and returns it.
func (b *Board) Create(ctx context.Context, section domain.Section, title string, tag domain.Tag) (domain.Story, error) {
	if !section.Valid() {
		return domain.Story{}, fmt.Errorf("%w: %d", domain.ErrUnknownSection, uint8(section))
	}
	title, err := domain.NormalizeTitle(title)
	if err != nil {
		return domain.Story{}, err
	}
	tag, err = domain.ParseTag(string(tag))
	if err != nil {
		return domain.Story{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	story := domain.Story{
		ID:        b.newID(),
		Title:     title,
		Tag:       tag,
		CreatedAt: b.now().UnixMilli(),
	}
	appendStory(&b.part, section, story)
	b.logger.WithFields(log.Fields{"story": story.ID, "section": section.String()}).Debug("story created")
	return story, b.commitLocked(ctx)
}

// Move reassigns storyID from one section to the tail of another. It reports
// false, with no state change, when from equals to or the story is not in
// from.
func (b *Board) Move(ctx context.Context, storyID string, from, to domain.Section) (bool, error) {
	if !from.Valid() || !to.Valid() {
		return false, domain.ErrUnknownSection
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !moveStory(&b.part, storyID, from, to) {
		return false, nil
	}
	b.logger.WithFields(log.Fields{"story": storyID, "from": from.String(), "to": to.String()}).Debug("story moved")
	return true, b.commitLocked(ctx)
}

// Delete removes storyID from section if it is there.
func (b *Board) Delete(ctx context.Context, section domain.Section, storyID string) (bool, error) {
	if !section.Valid() {
		return false, domain.ErrUnknownSection
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !deleteStory(&b.part, section, storyID) {
		return false, nil
	}
	b.logger.WithFields(log.Fields{"story": storyID, "section": section.String()}).Debug("story deleted")
	return true, b.commitLocked(ctx)
}

// Snapshot returns a copy of the current partition.
func (b *Board) Snapshot() domain.Partition {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.part.Clone()
}

// Locate returns the section that currently owns storyID.
func (b *Board) Locate(storyID string) (domain.Section, bool) {
	_, s, ok := b.Story(storyID)
	return s, ok
}

// Story returns a copy of storyID together with its section.
func (b *Board) Story(storyID string) (domain.Story, domain.Section, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, idx, ok := b.part.Locate(storyID)
	if !ok {
		return domain.Story{}, 0, false
	}
	return (*b.part.Seq(s))[idx], s, true
}

// Subscribe registers fn to receive a snapshot after every change. fn runs
// while the board is locked and must not call back into the board.
func (b *Board) Subscribe(fn func(domain.Partition)) (cancel func()) {
	b.mu.Lock()
	id := b.nextListener
	b.nextListener++
	b.listeners[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// Ping checks that the backend is reachable.
func (b *Board) Ping(ctx context.Context) error {
	_, _, err := b.backend.Load(ctx, StateKey)
	return err
}

func (b *Board) commitLocked(ctx context.Context) error {
	var perr error
	data, err := domain.EncodePartition(b.part)
	if err == nil {
		err = b.backend.Save(ctx, StateKey, data)
	}
	if err != nil {
		b.logger.WithError(err).Error("board save failed")
		perr = &PersistError{Key: StateKey, Err: err}
	}
	if len(b.listeners) > 0 {
		snap := b.part.Clone()
		for _, fn := range b.listeners {
			fn(snap)
		}
	}
	return perr
}
