package domain

import "errors"

var (
	// ErrEmptyTitle is returned when a story is created without a title.
	ErrEmptyTitle = errors.New("title is required")
	// ErrUnknownSection indicates a section id outside the fixed board columns.
	ErrUnknownSection = errors.New("unknown section")
	// ErrUnknownTag indicates a label outside the fixed tag set.
	ErrUnknownTag      = errors.New("unknown tag")
	ErrUnknownViewMode = errors.New("unknown view mode")
	ErrUnknownTheme    = errors.New("unknown theme")
)
