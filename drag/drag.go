// Package drag turns pick-up and release gestures into board moves.
//
// One gesture is active at a time. Picking a story up records the section
// that owns it; releasing over a section moves the story there, releasing
// over the same section is a no-op and releasing anywhere else cancels the
// gesture without touching the board.
package drag

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

var (
	ErrGestureInFlight = errors.New("another story is already lifted")
	ErrUnknownStory    = errors.New("story is not on the board")
	ErrStaleGesture    = errors.New("gesture is no longer active")
	ErrNoGesture       = errors.New("no story is lifted")
)

// DefaultGestureTTL bounds how long an idle gesture blocks new pick-ups.
const DefaultGestureTTL = 30 * time.Second

// Board is the part of the partition store the interaction layer drives.
type Board interface {
	Story(storyID string) (domain.Story, domain.Section, bool)
	Move(ctx context.Context, storyID string, from, to domain.Section) (bool, error)
}

// Outcome is the result of releasing a lifted story.
type Outcome string

const (
	OutcomeMoved     Outcome = "moved"
	OutcomeNoOp      Outcome = "noop"
	OutcomeCancelled Outcome = "cancelled"
)

// Pointer is a position of the pointer in client coordinates.
type Pointer struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Lift describes the story currently following the pointer.
type Lift struct {
	GestureID string         `json:"gestureId"`
	Story     domain.Story   `json:"story"`
	Source    domain.Section `json:"source"`
	Pointer   Pointer        `json:"pointer"`
	StartedAt time.Time      `json:"startedAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Controller tracks the active gesture.
type Controller struct {
	mu     sync.Mutex
	board  Board
	logger *log.Logger
	ttl    time.Duration
	now    func() time.Time
	newID  func() string
	active *Lift
}

type Option func(*Controller)

// WithTTL sets the idle time after which a gesture is treated as abandoned.
// A non-positive ttl disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *Controller) { c.ttl = ttl }
}

func WithClock(fn func() time.Time) Option {
	return func(c *Controller) { c.now = fn }
}

func New(board Board, logger *log.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = log.StandardLogger()
	}
	c := &Controller{
		board:  board,
		logger: logger,
		ttl:    DefaultGestureTTL,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveTarget maps a drop target id to a section. Anything that is not a
// section id is not a droppable region.
func ResolveTarget(target string) (domain.Section, bool) {
	s, err := domain.ParseSection(target)
	if err != nil {
		return 0, false
	}
	return s, true
}

// PickUp lifts storyID and records the section that owns it.
func (c *Controller) PickUp(storyID string, at Pointer) (Lift, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expireLocked()
	if c.active != nil {
		return Lift{}, ErrGestureInFlight
	}
	story, source, ok := c.board.Story(storyID)
	if !ok {
		return Lift{}, ErrUnknownStory
	}
	now := c.now()
	c.active = &Lift{
		GestureID: c.newID(),
		Story:     story,
		Source:    source,
		Pointer:   at,
		StartedAt: now,
		UpdatedAt: now,
	}
	c.logger.WithFields(log.Fields{"gesture": c.active.GestureID, "story": storyID, "source": source.String()}).Debug("story lifted")
	return *c.active, nil
}

// Track moves the lifted overlay with the pointer.
func (c *Controller) Track(gestureID string, at Pointer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	lift, err := c.currentLocked(gestureID)
	if err != nil {
		return err
	}
	lift.Pointer = at
	lift.UpdatedAt = c.now()
	return nil
}

// Release drops the lifted story over target. The gesture ends whatever the
// outcome.
func (c *Controller) Release(ctx context.Context, gestureID, target string) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lift, err := c.currentLocked(gestureID)
	if err != nil {
		return "", err
	}
	c.active = nil

	fields := log.Fields{"gesture": gestureID, "story": lift.Story.ID, "source": lift.Source.String(), "target": target}
	dest, ok := ResolveTarget(target)
	if !ok {
		c.logger.WithFields(fields).Debug("released outside a section, cancelled")
		return OutcomeCancelled, nil
	}
	if dest == lift.Source {
		return OutcomeNoOp, nil
	}
	moved, err := c.board.Move(ctx, lift.Story.ID, lift.Source, dest)
	if !moved {
		return OutcomeNoOp, err
	}
	c.logger.WithFields(fields).Debug("story dropped")
	return OutcomeMoved, err
}

// Cancel aborts the gesture without side effects.
func (c *Controller) Cancel(gestureID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.currentLocked(gestureID); err != nil {
		return err
	}
	c.active = nil
	return nil
}

// Active returns the lifted story, if any.
func (c *Controller) Active() (Lift, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expireLocked()
	if c.active == nil {
		return Lift{}, false
	}
	return *c.active, true
}

func (c *Controller) currentLocked(gestureID string) (*Lift, error) {
	c.expireLocked()
	if c.active == nil {
		return nil, ErrNoGesture
	}
	if c.active.GestureID != gestureID {
		return nil, ErrStaleGesture
	}
	return c.active, nil
}

// expireLocked drops a gesture idle for longer than the TTL. Idle time runs
// from the last PickUp or Track, so a client holding a drag keeps it alive by
// tracking the pointer.
func (c *Controller) expireLocked() {
	if c.active == nil || c.ttl <= 0 {
		return
	}
	if c.now().Sub(c.active.UpdatedAt) < c.ttl {
		return
	}
	c.logger.WithFields(log.Fields{"gesture": c.active.GestureID, "story": c.active.Story.ID}).Info("abandoned gesture expired")
	c.active = nil
}
