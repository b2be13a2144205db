package domain

import (
	"fmt"
	"strings"
)

// Section is one of the three fixed board columns. The zero value is not a
// valid section and stands for a story that has not been placed yet.
type Section uint8

const (
	SectionTodo Section = iota + 1
	SectionInProgress
	SectionDone
)

var sectionOrder = [...]Section{SectionTodo, SectionInProgress, SectionDone}

// Sections returns every section in board order.
func Sections() []Section {
	out := make([]Section, len(sectionOrder))
	copy(out, sectionOrder[:])
	return out
}

// ParseSection resolves the wire id of a section ("todo", "inprogress", "done").
func ParseSection(s string) (Section, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "todo":
		return SectionTodo, nil
	case "inprogress":
		return SectionInProgress, nil
	case "done":
		return SectionDone, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSection, s)
}

// Valid reports whether s is one of the board sections.
func (s Section) Valid() bool {
	return s >= SectionTodo && s <= SectionDone
}

func (s Section) String() string {
	switch s {
	case SectionTodo:
		return "todo"
	case SectionInProgress:
		return "inprogress"
	case SectionDone:
		return "done"
	}
	return fmt.Sprintf("section(%d)", uint8(s))
}

// Title is the human readable column heading.
func (s Section) Title() string {
	switch s {
	case SectionTodo:
		return "To Do"
	case SectionInProgress:
		return "In Progress"
	case SectionDone:
		return "Done"
	}
	return ""
}

func (s Section) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSection, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Section) UnmarshalText(text []byte) error {
	parsed, err := ParseSection(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
