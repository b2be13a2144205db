package api

import (
	"context"

	"kanban-api/domain"
	"kanban-api/drag"
)

// Board abstracts the partition store for handlers.
type Board interface {
	Snapshot() domain.Partition
	Create(ctx context.Context, section domain.Section, title string, tag domain.Tag) (domain.Story, error)
	Move(ctx context.Context, storyID string, from, to domain.Section) (bool, error)
	Delete(ctx context.Context, section domain.Section, storyID string) (bool, error)
	Subscribe(fn func(domain.Partition)) (cancel func())
	Ping(ctx context.Context) error
}

// Dragger is implemented by the drag-and-drop controller.
type Dragger interface {
	PickUp(storyID string, at drag.Pointer) (drag.Lift, error)
	Track(gestureID string, at drag.Pointer) error
	Release(ctx context.Context, gestureID, target string) (drag.Outcome, error)
	Cancel(gestureID string) error
	Active() (drag.Lift, bool)
}

// PreferenceStore reads and replaces the presentation preferences.
type PreferenceStore interface {
	Get(ctx context.Context) (domain.Preferences, error)
	Set(ctx context.Context, prefs domain.Preferences) (domain.Preferences, error)
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Deduper prevents processing of duplicate commands.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when the command is rejected.
	Remove(ctx context.Context, userID, key string) error
}

// Services groups the collaborators Register wires into routes. Deduper is
// optional.
type Services struct {
	Board       Board
	Drag        Dragger
	Preferences PreferenceStore
	Auth        Authenticator
	Deduper     Deduper
}
