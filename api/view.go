package api

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"kanban-api/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// tagColors holds the badge palette per tag. Unknown tags get the neutral one.
var tagColors = map[domain.Tag]string{
	domain.TagDesign:    "purple",
	domain.TagResearch:  "blue",
	domain.TagMarketing: "pink",
	domain.TagBackend:   "amber",
	domain.TagBug:       "red",
	domain.TagDevOps:    "emerald",
}

// TemplateRenderer renders the board page through html/template.
type TemplateRenderer struct {
	templates *template.Template
}

// NewTemplateRenderer parses the embedded templates.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"tagColor": tagColor,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &TemplateRenderer{templates: t}, nil
}

func (r *TemplateRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

type boardView struct {
	Mode      domain.ViewMode
	Theme     domain.Theme
	NextTheme domain.Theme
	Sections  []sectionView
	Tags      []domain.Tag
	LiftedID  string
	Total     int
}

type sectionView struct {
	ID      string
	Title   string
	Stories []storyView
}

type storyView struct {
	domain.Story
	Section string
	Elapsed string
}

func newBoardView(p domain.Partition, prefs domain.Preferences, liftedID string, now time.Time) boardView {
	v := boardView{
		Mode:      prefs.ViewMode,
		Theme:     prefs.Theme,
		NextTheme: domain.ThemeDark,
		Tags:      domain.Tags(),
		LiftedID:  liftedID,
		Total:     p.Len(),
	}
	if prefs.Theme == domain.ThemeDark {
		v.NextTheme = domain.ThemeLight
	}
	for _, s := range domain.Sections() {
		stories := p.Section(s)
		sv := sectionView{ID: s.String(), Title: s.Title(), Stories: make([]storyView, 0, len(stories))}
		for _, story := range stories {
			elapsed := ""
			if story.CreatedAt > 0 {
				elapsed = formatElapsed(now.Sub(time.UnixMilli(story.CreatedAt)))
			}
			sv.Stories = append(sv.Stories, storyView{Story: story, Section: s.String(), Elapsed: elapsed})
		}
		v.Sections = append(v.Sections, sv)
	}
	return v
}

func tagColor(tag domain.Tag) string {
	if c, ok := tagColors[tag]; ok {
		return c
	}
	return "gray"
}

// formatElapsed renders d as "1h 2m 3s", omitting zero hours and minutes.
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int64(d / time.Second)
	hrs := sec / 3600
	mins := (sec % 3600) / 60
	secs := sec % 60

	var b strings.Builder
	if hrs > 0 {
		fmt.Fprintf(&b, "%dh ", hrs)
	}
	if mins > 0 {
		fmt.Fprintf(&b, "%dm ", mins)
	}
	fmt.Fprintf(&b, "%ds", secs)
	return b.String()
}

func renderBoard(svc Services) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		prefs, err := svc.Preferences.Get(ctx)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		if raw := c.QueryParam("mode"); raw != "" {
			mode, err := domain.ParseViewMode(raw)
			if err != nil {
				return c.String(http.StatusBadRequest, err.Error())
			}
			prefs.ViewMode = mode
		}
		lifted := ""
		if lift, ok := svc.Drag.Active(); ok {
			lifted = lift.Story.ID
		}
		return c.Render(http.StatusOK, "board.html", newBoardView(svc.Board.Snapshot(), prefs, lifted, time.Now()))
	}
}
