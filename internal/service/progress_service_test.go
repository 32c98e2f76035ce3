package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neovidya/internal/models"
)

func TestRecordProgressTwiceKeepsLatest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, actor := env.demo(t)

	first, err := env.ledger.RecordProgress(ctx, actor, ProgressUpdate{Subject: "math", ChapterIndex: 0, ItemIndex: 2, Completed: true, Score: intPtr(60)})
	require.NoError(t, err)
	assert.True(t, first.Completed)
	require.NotNil(t, first.CompletedAt)
	assert.True(t, first.CompletedAt.Equal(env.clock))

	env.clock = env.clock.Add(time.Hour)
	second, err := env.ledger.RecordProgress(ctx, actor, ProgressUpdate{Subject: "math", ChapterIndex: 0, ItemIndex: 2, Completed: false, Score: intPtr(15)})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.False(t, second.Completed)
	assert.Equal(t, 15, second.Score)
	assert.Nil(t, second.CompletedAt)

	entries, err := env.progress.ListProgressByUser(ctx, actor.UserID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRecordProgressCreatesCourseOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, actor := env.demo(t)

	for item := 0; item < 3; item++ {
		_, err := env.ledger.RecordProgress(ctx, actor, ProgressUpdate{Subject: "science", ChapterIndex: 1, ItemIndex: item})
		require.NoError(t, err)
	}

	courses, err := env.courses.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "Science", courses[0].Title)
	assert.Equal(t, "science", courses[0].Subject)
}

func TestRecordProgressDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, actor := env.demo(t)

	entry, err := env.ledger.RecordProgress(ctx, actor, ProgressUpdate{Subject: "art", ChapterIndex: 0, ItemIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, entry.Score)
	assert.False(t, entry.Completed)
	assert.Nil(t, entry.CompletedAt)
}

func TestRecordProgressValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, actor := env.demo(t)

	tests := []struct {
		name    string
		actor   models.AuthContext
		update  ProgressUpdate
		wantErr error
	}{
		{name: "anonymous", actor: models.Anonymous(), update: ProgressUpdate{Subject: "math"}, wantErr: ErrUnauthenticated},
		{name: "negative chapter", actor: actor, update: ProgressUpdate{Subject: "math", ChapterIndex: -1}, wantErr: ErrValidation},
		{name: "negative item", actor: actor, update: ProgressUpdate{Subject: "math", ItemIndex: -3}, wantErr: ErrValidation},
		{name: "negative score", actor: actor, update: ProgressUpdate{Subject: "math", Score: intPtr(-5)}, wantErr: ErrValidation},
		{name: "blank subject", actor: actor, update: ProgressUpdate{Subject: "  "}, wantErr: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ledger.RecordProgress(ctx, tt.actor, tt.update)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	entries, err := env.progress.ListAllProgress(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected writes must not touch the store")
}

// Parallel writes to one item converge on a single row without surfacing errors.
func TestRecordProgressConcurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, actor := env.demo(t)

	const writers = 10
	errs := make([]error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.ledger.RecordProgress(ctx, actor, ProgressUpdate{
				Subject:      "english",
				ChapterIndex: 1,
				ItemIndex:    1,
				Completed:    i%2 == 0,
				Score:        intPtr(i * 10),
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "writer %d", i)
	}

	entries, err := env.progress.ListProgressByUser(ctx, actor.UserID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 0, entries[0].Score%10)

	courses, err := env.courses.ListCourses(ctx)
	require.NoError(t, err)
	assert.Len(t, courses, 1)
}

func TestListProgressGroupsEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, actor := env.demo(t)

	updates := []ProgressUpdate{
		{Subject: "math", ChapterIndex: 0, ItemIndex: 0, Completed: true, Score: intPtr(10)},
		{Subject: "math", ChapterIndex: 0, ItemIndex: 1},
		{Subject: "math", ChapterIndex: 2, ItemIndex: 0, Completed: true},
		{Subject: "hindi", ChapterIndex: 1, ItemIndex: 2, Completed: true, Score: intPtr(60)},
	}
	for _, u := range updates {
		_, err := env.ledger.RecordProgress(ctx, actor, u)
		require.NoError(t, err)
	}

	tree, err := env.ledger.ListProgress(ctx, actor)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Len(t, tree["math"], 2)
	assert.Len(t, tree["math"][0], 2)
	assert.Equal(t, 10, tree["math"][0][0].Score)
	assert.True(t, tree["hindi"][1][2].Completed)
	assert.Nil(t, tree["math"][0][1].CompletedAt)

	_, err = env.ledger.ListProgress(ctx, models.Anonymous())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestListProgressIsPerUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, demo := env.demo(t)

	other, err := env.auth.Register(ctx, models.Anonymous(), RegisterInput{Username: "other", Email: "other@example.com", Password: "1234"})
	require.NoError(t, err)
	otherActor := models.Authenticated(other.ID, other.Role)

	_, err = env.ledger.RecordProgress(ctx, demo, ProgressUpdate{Subject: "pe", Completed: true})
	require.NoError(t, err)

	tree, err := env.ledger.ListProgress(ctx, otherActor)
	require.NoError(t, err)
	assert.Empty(t, tree)
}

func TestSubjectProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, actor := env.demo(t)

	_, err := env.ledger.RecordProgress(ctx, actor, ProgressUpdate{Subject: "computer", ChapterIndex: 1, ItemIndex: 0, Completed: true})
	require.NoError(t, err)
	_, err = env.ledger.RecordProgress(ctx, actor, ProgressUpdate{Subject: "math", ChapterIndex: 0, ItemIndex: 0, Completed: true})
	require.NoError(t, err)

	sp, err := env.ledger.SubjectProgress(ctx, actor, "computer")
	require.NoError(t, err)
	require.Len(t, sp, 1)
	assert.True(t, sp[1][0].Completed)

	empty, err := env.ledger.SubjectProgress(ctx, actor, "art")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = env.ledger.SubjectProgress(ctx, actor, "astrology")
	assert.ErrorIs(t, err, ErrSubjectNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}
