package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"issuetracker/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var testTime = time.Date(2024, 11, 22, 10, 30, 0, 0, time.UTC)

func newTestIssue(project, title, createdBy string) models.Issue {
	return models.Issue{
		ID:         NewObjectID(),
		Project:    project,
		IssueTitle: title,
		IssueText:  "text",
		CreatedBy:  createdBy,
		Open:       true,
		CreatedOn:  testTime,
		UpdatedOn:  testTime,
	}
}

func TestMemoryStore_FindIssues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	a := newTestIssue("apitest", "A", "joe")
	b := newTestIssue("apitest", "B", "joe")
	c := newTestIssue("apitest", "A", "ann")
	other := newTestIssue("other", "A", "joe")
	for _, issue := range []models.Issue{a, b, c, other} {
		require.NoError(t, store.InsertIssue(ctx, &issue))
	}

	all, err := store.FindIssues(ctx, Filter{Project: "apitest"})
	require.NoError(t, err)
	assert.Equal(t, []models.Issue{a, b, c}, all)

	filtered, err := store.FindIssues(ctx, Filter{
		Project: "apitest",
		Conditions: []models.Field{
			{Name: models.FieldIssueTitle, Value: "A"},
			{Name: models.FieldCreatedBy, Value: "joe"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.Issue{a}, filtered)

	byTime, err := store.FindIssues(ctx, Filter{
		Project:    "apitest",
		Conditions: []models.Field{{Name: models.FieldCreatedOn, Value: testTime.In(time.FixedZone("X", 3600))}},
	})
	require.NoError(t, err)
	assert.Len(t, byTime, 3)

	none, err := store.FindIssues(ctx, Filter{Project: "missing"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = store.FindIssues(ctx, Filter{Project: "apitest", Conditions: []models.Field{{Name: "bogus", Value: 1}}})
	assert.Error(t, err)
}

func TestMemoryStore_InsertDuplicateID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	issue := newTestIssue("apitest", "A", "joe")
	require.NoError(t, store.InsertIssue(ctx, &issue))

	assert.Error(t, store.InsertIssue(ctx, &issue))
	assert.Equal(t, 1, store.Count("apitest"))
}

func TestMemoryStore_UpdateIssue(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	issue := newTestIssue("apitest", "A", "joe")
	require.NoError(t, store.InsertIssue(ctx, &issue))

	later := testTime.Add(time.Hour)
	err := store.UpdateIssue(ctx, "apitest", issue.ID, Update{
		Fields: []models.Field{
			{Name: models.FieldStatusText, Value: "in progress"},
			{Name: models.FieldOpen, Value: false},
		},
		UpdatedOn: later,
	})
	require.NoError(t, err)

	got, err := store.FindIssues(ctx, Filter{Project: "apitest"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "in progress", got[0].StatusText)
	assert.False(t, got[0].Open)
	assert.Equal(t, "A", got[0].IssueTitle)
	assert.Equal(t, testTime, got[0].CreatedOn)
	assert.Equal(t, later, got[0].UpdatedOn)
}

func TestMemoryStore_UpdateIssue_Errors(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	issue := newTestIssue("apitest", "A", "joe")
	require.NoError(t, store.InsertIssue(ctx, &issue))

	title := []models.Field{{Name: models.FieldIssueTitle, Value: "B"}}

	err := store.UpdateIssue(ctx, "other", issue.ID, Update{Fields: title, UpdatedOn: testTime})
	assert.ErrorIs(t, err, ErrIssueNotFound)

	err = store.UpdateIssue(ctx, "apitest", primitive.NewObjectID(), Update{Fields: title, UpdatedOn: testTime})
	assert.ErrorIs(t, err, ErrIssueNotFound)

	err = store.UpdateIssue(ctx, "apitest", issue.ID, Update{UpdatedOn: testTime})
	assert.Error(t, err)

	err = store.UpdateIssue(ctx, "apitest", issue.ID, Update{
		Fields:    []models.Field{{Name: models.FieldProject, Value: "stolen"}},
		UpdatedOn: testTime,
	})
	assert.Error(t, err)

	err = store.UpdateIssue(ctx, "apitest", issue.ID, Update{
		Fields: []models.Field{
			{Name: models.FieldIssueTitle, Value: "B"},
			{Name: models.FieldOpen, Value: "not a bool"},
		},
		UpdatedOn: testTime.Add(time.Hour),
	})
	assert.Error(t, err)

	got, err := store.FindIssues(ctx, Filter{Project: "apitest"})
	require.NoError(t, err)
	assert.Equal(t, []models.Issue{issue}, got)
}

func TestMemoryStore_DeleteIssue(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	a := newTestIssue("apitest", "A", "joe")
	b := newTestIssue("apitest", "B", "joe")
	require.NoError(t, store.InsertIssue(ctx, &a))
	require.NoError(t, store.InsertIssue(ctx, &b))

	assert.ErrorIs(t, store.DeleteIssue(ctx, "other", a.ID), ErrIssueNotFound)
	require.NoError(t, store.DeleteIssue(ctx, "apitest", a.ID))
	assert.ErrorIs(t, store.DeleteIssue(ctx, "apitest", a.ID), ErrIssueNotFound)

	got, err := store.FindIssues(ctx, Filter{Project: "apitest"})
	require.NoError(t, err)
	assert.Equal(t, []models.Issue{b}, got)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			issue := newTestIssue("apitest", "A", "joe")
			assert.NoError(t, store.InsertIssue(ctx, &issue))
			_, err := store.FindIssues(ctx, Filter{Project: "apitest"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, store.Count("apitest"))
}
