package models

import "time"

// Course is the stored counterpart of a catalogue subject
type Course struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Subject     string    `json:"subject"`
	GradeLevel  string    `json:"grade_level,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProgressKey identifies one learning item for one user
type ProgressKey struct {
	UserID       int64
	Subject      string
	ChapterIndex int
	ItemIndex    int
}

// ProgressEntry is the completion state of a single learning item
type ProgressEntry struct {
	ID           int64
	UserID       int64
	CourseID     int64
	Subject      string
	ChapterIndex int
	ItemIndex    int
	Completed    bool
	Score        int
	CompletedAt  *time.Time
	UpdatedAt    time.Time
}

// Key returns the composite key of the entry
func (e *ProgressEntry) Key() ProgressKey {
	return ProgressKey{
		UserID:       e.UserID,
		Subject:      e.Subject,
		ChapterIndex: e.ChapterIndex,
		ItemIndex:    e.ItemIndex,
	}
}

// ItemProgress is the leaf of a grouped progress listing
type ItemProgress struct {
	Completed   bool       `json:"completed"`
	Score       int        `json:"score"`
	CompletedAt *time.Time `json:"completed_at"`
}

// ChapterProgress maps item index to item progress
type ChapterProgress map[int]ItemProgress

// SubjectProgress maps chapter index to chapter progress
type SubjectProgress map[int]ChapterProgress

// ProgressTree maps subject key to subject progress
type ProgressTree map[string]SubjectProgress

// GroupProgress nests entries by subject, chapter and item
func GroupProgress(entries []ProgressEntry) ProgressTree {
	tree := make(ProgressTree)
	for _, e := range entries {
		subject, ok := tree[e.Subject]
		if !ok {
			subject = make(SubjectProgress)
			tree[e.Subject] = subject
		}
		chapter, ok := subject[e.ChapterIndex]
		if !ok {
			chapter = make(ChapterProgress)
			subject[e.ChapterIndex] = chapter
		}
		chapter[e.ItemIndex] = ItemProgress{
			Completed:   e.Completed,
			Score:       e.Score,
			CompletedAt: e.CompletedAt,
		}
	}
	return tree
}

// Stats is a user's gamification summary
type Stats struct {
	XP             int        `json:"xp"`
	Streak         int        `json:"streak"`
	LastActive     *time.Time `json:"last_active"`
	CompletedItems int        `json:"completed_items"`
}

// StatsUpdate carries the counters to change; nil fields are left alone
type StatsUpdate struct {
	XP     *int `json:"xp" validate:"omitempty,gte=0"`
	Streak *int `json:"streak" validate:"omitempty,gte=0"`
}
