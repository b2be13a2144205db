package board

import "kanban-api/domain"

// The transitions below are the only code that writes to a partition. Each
// builds the new sequences before assigning them, so a story is never seen in
// two sections or in none.

func appendStory(p *domain.Partition, s domain.Section, story domain.Story) {
	seq := p.Seq(s)
	next := make([]domain.Story, len(*seq), len(*seq)+1)
	copy(next, *seq)
	*seq = append(next, story)
}

func moveStory(p *domain.Partition, storyID string, from, to domain.Section) bool {
	if from == to {
		return false
	}
	src, dst := p.Seq(from), p.Seq(to)
	idx := indexOf(*src, storyID)
	if idx < 0 {
		return false
	}
	story := (*src)[idx]

	remaining := make([]domain.Story, 0, len(*src)-1)
	remaining = append(remaining, (*src)[:idx]...)
	remaining = append(remaining, (*src)[idx+1:]...)

	grown := make([]domain.Story, len(*dst), len(*dst)+1)
	copy(grown, *dst)
	grown = append(grown, story)

	*src, *dst = remaining, grown
	return true
}

func deleteStory(p *domain.Partition, s domain.Section, storyID string) bool {
	seq := p.Seq(s)
	idx := indexOf(*seq, storyID)
	if idx < 0 {
		return false
	}
	remaining := make([]domain.Story, 0, len(*seq)-1)
	remaining = append(remaining, (*seq)[:idx]...)
	remaining = append(remaining, (*seq)[idx+1:]...)
	*seq = remaining
	return true
}

func indexOf(stories []domain.Story, storyID string) int {
	for i := range stories {
		if stories[i].ID == storyID {
			return i
		}
	}
	return -1
}
