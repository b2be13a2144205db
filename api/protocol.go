package api

import (
	"kanban-api/domain"
	"kanban-api/drag"
)

const postCommandMaxSize = 64 * 1024 // 64 KiB

// IdempotencyKeyHeader lets clients retry a create without duplicating it.
const IdempotencyKeyHeader = "Idempotency-Key"

// POST /api/stories request body
type createStoryRequest struct {
	Title   string `json:"title"`
	Tag     string `json:"tag,omitempty"`
	Section string `json:"section,omitempty"`
}

// POST /api/stories response body
type createStoryResponse struct {
	Story   domain.Story   `json:"story"`
	Section domain.Section `json:"section"`
	Error   string         `json:"error,omitempty"`
}

// POST /api/stories/:id/move request body
type moveStoryRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type moveStoryResponse struct {
	Moved bool   `json:"moved"`
	Error string `json:"error,omitempty"`
}

type deleteStoryResponse struct {
	Deleted bool   `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// POST /api/drag/pickup request body
type pickUpRequest struct {
	StoryID string  `json:"storyId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// POST /api/drag/track request body
type trackRequest struct {
	GestureID string  `json:"gestureId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// POST /api/drag/release request body
type releaseRequest struct {
	GestureID string `json:"gestureId"`
	Target    string `json:"target"`
}

type releaseResponse struct {
	Outcome drag.Outcome `json:"outcome"`
	Error   string       `json:"error,omitempty"`
}

// POST /api/drag/cancel request body
type cancelRequest struct {
	GestureID string `json:"gestureId"`
}
