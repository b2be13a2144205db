package domain

import (
	"reflect"
	"strings"
	"testing"
)

func TestEncodePartitionLayout(t *testing.T) {
	payload, err := EncodePartition(Partition{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"sections":{"todo":[],"inprogress":[],"done":[]}}`
	if string(payload) != want {
		t.Fatalf("unexpected layout %s, want %s", payload, want)
	}
}

func TestPartitionRoundTrip(t *testing.T) {
	p := NewPartition()
	p.Todo = append(p.Todo, Story{ID: "a", Title: "A", Tag: TagBug})
	p.Done = append(p.Done, Story{ID: "b", Title: "B", Tag: TagDesign, CreatedAt: 42})

	payload, err := EncodePartition(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodePartition(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, p) {
		t.Fatalf("round trip mismatch: %#v != %#v", got, p)
	}
}

func TestDecodePartitionIgnoresLegacyFields(t *testing.T) {
	data := []byte(`{"dropId":"1","sections":{"todo":[{"id":"story-1","title":"x","tag":"Bug"}],"inprogress":[],"done":null}}`)
	p, err := DecodePartition(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(p.Todo) != 1 || p.Todo[0].ID != "story-1" {
		t.Fatalf("unexpected todo %#v", p.Todo)
	}
	if p.Done == nil {
		t.Fatalf("expected empty done slice, got nil")
	}
}

func TestDecodePartitionRejectsMalformed(t *testing.T) {
	for _, data := range []string{`not json`, `{"todo":[]}`, `[]`} {
		if _, err := DecodePartition([]byte(data)); err == nil {
			t.Fatalf("expected error for %q", data)
		}
	}
}

func TestPartitionDedupe(t *testing.T) {
	p := Partition{
		Todo:       []Story{{ID: "a"}, {ID: ""}},
		InProgress: []Story{{ID: "a"}, {ID: "b"}},
		Done:       []Story{{ID: "b"}},
	}
	if removed := p.Dedupe(); removed != 3 {
		t.Fatalf("expected 3 removals, got %d", removed)
	}
	if len(p.Todo) != 1 || len(p.InProgress) != 1 || len(p.Done) != 0 {
		t.Fatalf("unexpected partition after dedupe: %#v", p)
	}
	if p.InProgress[0].ID != "b" {
		t.Fatalf("expected b to stay in progress, got %#v", p.InProgress)
	}
}

func TestPartitionNormalize(t *testing.T) {
	p := Partition{
		Todo:       []Story{{ID: "a", Title: "", Tag: "Meeting"}, {ID: "b", Title: "  B ", Tag: "bug"}},
		InProgress: []Story{{ID: "c", Title: "C", Tag: "Meeting"}, {ID: "d", Title: "D"}},
		Done:       []Story{{ID: "e", Title: " \t", Tag: TagBug}},
	}
	dropped, retagged := p.Normalize()
	if dropped != 2 || retagged != 2 {
		t.Fatalf("expected 2 dropped and 2 retagged, got %d and %d", dropped, retagged)
	}
	want := Partition{
		Todo:       []Story{{ID: "b", Title: "B", Tag: TagBug}},
		InProgress: []Story{{ID: "c", Title: "C", Tag: DefaultTag}, {ID: "d", Title: "D", Tag: DefaultTag}},
		Done:       []Story{},
	}
	if !reflect.DeepEqual(want, p) {
		t.Fatalf("unexpected partition after normalize: %#v", p)
	}
}

func TestLocateAndClone(t *testing.T) {
	p := NewPartition()
	p.InProgress = append(p.InProgress, Story{ID: "x", Title: "X"})

	s, idx, ok := p.Locate("x")
	if !ok || s != SectionInProgress || idx != 0 {
		t.Fatalf("locate = %v %d %v", s, idx, ok)
	}
	if _, _, ok := p.Locate("missing"); ok {
		t.Fatalf("expected missing story not to be found")
	}

	c := p.Clone()
	c.InProgress[0].Title = strings.ToUpper("changed")
	if p.InProgress[0].Title != "X" {
		t.Fatalf("clone shares backing storage")
	}
}
