package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
)

func TestStoryMarshalOmitsZeroCreatedAt(t *testing.T) {
	story := Story{ID: "s1", Title: "Title", Tag: TagBug}

	payload, err := sonic.Marshal(story)
	if err != nil {
		t.Fatalf("marshal story: %v", err)
	}

	if strings.Contains(string(payload), "createdAt") {
		t.Fatalf("expected createdAt to be omitted, got %s", payload)
	}
	if !strings.Contains(string(payload), `"tag":"Bug"`) {
		t.Fatalf("expected tag field, got %s", payload)
	}
}

func TestParseTag(t *testing.T) {
	tests := []struct {
		in      string
		want    Tag
		wantErr bool
	}{
		{in: "", want: TagDesign},
		{in: "bug", want: TagBug},
		{in: " DevOps ", want: TagDevOps},
		{in: "Urgent", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseTag(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownTag) {
				t.Fatalf("ParseTag(%q) err = %v, want ErrUnknownTag", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseTag(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestNormalizeTitle(t *testing.T) {
	if _, err := NormalizeTitle("   "); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	got, err := NormalizeTitle("  Fix bug ")
	if err != nil || got != "Fix bug" {
		t.Fatalf("unexpected title %q, err %v", got, err)
	}
}
