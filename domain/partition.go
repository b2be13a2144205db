package domain

import (
	"errors"

	"github.com/bytedance/sonic"
)

// Partition assigns every story on the board to exactly one section. Order
// inside a section is insertion order.
type Partition struct {
	Todo       []Story
	InProgress []Story
	Done       []Story
}

// partitionDocument is the persisted layout:
// {"sections":{"todo":[...],"inprogress":[...],"done":[...]}}.
type partitionDocument struct {
	Sections struct {
		Todo       []Story `json:"todo"`
		InProgress []Story `json:"inprogress"`
		Done       []Story `json:"done"`
	} `json:"sections"`
}

var errMissingSections = errors.New("partition document has no sections")

// NewPartition returns a partition with three empty sections.
func NewPartition() Partition {
	return Partition{Todo: []Story{}, InProgress: []Story{}, Done: []Story{}}
}

// Seq returns a pointer to the backing slice of section s, or nil when s is
// not a board section.
func (p *Partition) Seq(s Section) *[]Story {
	switch s {
	case SectionTodo:
		return &p.Todo
	case SectionInProgress:
		return &p.InProgress
	case SectionDone:
		return &p.Done
	}
	return nil
}

// Section returns a copy of the stories in s.
func (p Partition) Section(s Section) []Story {
	seq := p.Seq(s)
	if seq == nil {
		return nil
	}
	out := make([]Story, len(*seq))
	copy(out, *seq)
	return out
}

// Clone returns a deep copy of p.
func (p Partition) Clone() Partition {
	return Partition{
		Todo:       p.Section(SectionTodo),
		InProgress: p.Section(SectionInProgress),
		Done:       p.Section(SectionDone),
	}
}

// Locate scans the sections in board order for storyID.
func (p Partition) Locate(storyID string) (Section, int, bool) {
	for _, s := range sectionOrder {
		for i, st := range *p.Seq(s) {
			if st.ID == storyID {
				return s, i, true
			}
		}
	}
	return 0, -1, false
}

// Len is the total number of stories across all sections.
func (p Partition) Len() int {
	return len(p.Todo) + len(p.InProgress) + len(p.Done)
}

// Dedupe enforces the partition invariant on data that did not come from the
// store itself: stories without an id are dropped and only the first
// occurrence of each id is kept. It returns the number of stories removed.
func (p *Partition) Dedupe() int {
	seen := make(map[string]struct{}, p.Len())
	removed := 0
	for _, s := range sectionOrder {
		seq := p.Seq(s)
		kept := make([]Story, 0, len(*seq))
		for _, st := range *seq {
			if st.ID == "" {
				removed++
				continue
			}
			if _, dup := seen[st.ID]; dup {
				removed++
				continue
			}
			seen[st.ID] = struct{}{}
			kept = append(kept, st)
		}
		*seq = kept
	}
	return removed
}

// Normalize brings stored stories back inside the field rules Create
// enforces. Titles are trimmed and stories left without one are dropped.
// Tags outside the label set fall back to DefaultTag.
func (p *Partition) Normalize() (dropped, retagged int) {
	for _, s := range sectionOrder {
		seq := p.Seq(s)
		kept := make([]Story, 0, len(*seq))
		for _, st := range *seq {
			title, err := NormalizeTitle(st.Title)
			if err != nil {
				dropped++
				continue
			}
			st.Title = title
			tag, err := ParseTag(string(st.Tag))
			if err != nil || st.Tag == "" {
				tag = DefaultTag
				retagged++
			}
			st.Tag = tag
			kept = append(kept, st)
		}
		*seq = kept
	}
	return dropped, retagged
}

// EncodePartition serializes p in the persisted layout.
func EncodePartition(p Partition) ([]byte, error) {
	var doc partitionDocument
	doc.Sections.Todo = nonNil(p.Todo)
	doc.Sections.InProgress = nonNil(p.InProgress)
	doc.Sections.Done = nonNil(p.Done)
	return sonic.Marshal(&doc)
}

// DecodePartition parses the persisted layout. Unknown fields are ignored.
func DecodePartition(data []byte) (Partition, error) {
	var raw map[string]sonic.NoCopyRawMessage
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return Partition{}, err
	}
	if _, ok := raw["sections"]; !ok {
		return Partition{}, errMissingSections
	}
	var doc partitionDocument
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return Partition{}, err
	}
	return Partition{
		Todo:       nonNil(doc.Sections.Todo),
		InProgress: nonNil(doc.Sections.InProgress),
		Done:       nonNil(doc.Sections.Done),
	}, nil
}

func nonNil(s []Story) []Story {
	if s == nil {
		return []Story{}
	}
	return s
}
