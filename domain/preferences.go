package domain

import (
	"fmt"
	"strings"
)

// ViewMode selects how sections are laid out.
type ViewMode string

const (
	ViewBoard ViewMode = "board"
	ViewList  ViewMode = "list"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Preferences represents the presentation options of the board.
type Preferences struct {
	ViewMode ViewMode `json:"viewMode"`
	Theme    Theme    `json:"theme"`
}

// DefaultPreferences is used when nothing has been stored yet.
func DefaultPreferences() Preferences {
	return Preferences{ViewMode: ViewBoard, Theme: ThemeLight}
}

func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(s))) {
	case ViewBoard:
		return ViewBoard, nil
	case ViewList, "compact":
		return ViewList, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownViewMode, s)
}

func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTheme, s)
}

// Validate normalizes p in place, filling empty fields with defaults.
func (p *Preferences) Validate() error {
	def := DefaultPreferences()
	if p.ViewMode == "" {
		p.ViewMode = def.ViewMode
	} else {
		mode, err := ParseViewMode(string(p.ViewMode))
		if err != nil {
			return err
		}
		p.ViewMode = mode
	}
	if p.Theme == "" {
		p.Theme = def.Theme
	} else {
		theme, err := ParseTheme(string(p.Theme))
		if err != nil {
			return err
		}
		p.Theme = theme
	}
	return nil
}
