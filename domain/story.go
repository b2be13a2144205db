package domain

import (
	"fmt"
	"strings"
)

// Tag labels a story. Only the fixed set below is accepted.
type Tag string

const (
	TagDesign    Tag = "Design"
	TagResearch  Tag = "Research"
	TagMarketing Tag = "Marketing"
	TagBackend   Tag = "Backend"
	TagBug       Tag = "Bug"
	TagDevOps    Tag = "DevOps"

	DefaultTag = TagDesign
)

var tagSet = [...]Tag{TagDesign, TagResearch, TagMarketing, TagBackend, TagBug, TagDevOps}

// Tags returns the label set in display order.
func Tags() []Tag {
	out := make([]Tag, len(tagSet))
	copy(out, tagSet[:])
	return out
}

// ParseTag matches s case-insensitively against the label set. An empty
// string selects DefaultTag.
func ParseTag(s string) (Tag, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultTag, nil
	}
	for _, t := range tagSet {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTag, s)
}

// Story represents a single work item on the board.
type Story struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Tag       Tag    `json:"tag"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

// NormalizeTitle trims surrounding whitespace and rejects empty titles.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrEmptyTitle
	}
	return title, nil
}
