package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nousapp/nous/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNoteLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	note := model.NewNote("u1", "title", "content")
	require.NoError(t, InsertOne(ctx, s, Notes, note.ID, note.UserID, note))

	got, err := FindOne[model.Note](ctx, s, Notes, note.ID, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, note.Content, got.Content)

	note.Content = "edited"
	ok, err := UpdateOne(ctx, s, Notes, note.ID, "u1", note)
	require.NoError(t, err)
	require.True(t, ok)

	got, err = FindOne[model.Note](ctx, s, Notes, note.ID, "u1")
	require.NoError(t, err)
	require.Equal(t, "edited", got.Content)

	ok, err = DeleteOne(ctx, s, Notes, note.ID, "u1")
	require.NoError(t, err)
	require.True(t, ok)

	got, err = FindOne[model.Note](ctx, s, Notes, note.ID, "u1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFindIsScopedToOwner(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mine := model.NewNote("u1", "mine", "x")
	theirs := model.NewNote("u2", "theirs", "y")
	require.NoError(t, InsertOne(ctx, s, Notes, mine.ID, mine.UserID, mine))
	require.NoError(t, InsertOne(ctx, s, Notes, theirs.ID, theirs.UserID, theirs))

	list, err := Find[model.Note](ctx, s, Notes, "u1", 50)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "mine", list[0].Title)

	// cross-user lookup by id must miss
	got, err := FindOne[model.Note](ctx, s, Notes, theirs.ID, "u1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestAppendTurnsWithSummary(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	session := model.NewChatSession("u1", "t")
	require.NoError(t, InsertOne(ctx, s, ChatSessions, session.ID, session.UserID, session))

	pair := []model.ChatTurn{
		model.NewChatTurn(model.RoleUser, "enc-q"),
		model.NewChatTurn(model.RoleAssistant, "enc-a"),
	}
	ok, err := s.AppendTurns(ctx, session.ID, "u1", pair, "enc-summary", true)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := FindOne[model.ChatSession](ctx, s, ChatSessions, session.ID, "u1")
	require.NoError(t, err)
	require.Len(t, got.Turns, 2)
	require.Equal(t, "enc-q", got.Turns[0].Content)
	require.Equal(t, "enc-a", got.Turns[1].Content)
	require.Equal(t, "enc-summary", got.RunningSummary)
	require.True(t, got.UpdatedAt.After(session.UpdatedAt) || got.UpdatedAt.Equal(session.UpdatedAt))
}

func TestAppendTurnsKeepsSummaryWhenNotUpdated(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	session := model.NewChatSession("u1", "t")
	session.RunningSummary = "old-summary"
	require.NoError(t, InsertOne(ctx, s, ChatSessions, session.ID, session.UserID, session))

	ok, err := s.AppendTurns(ctx, session.ID, "u1",
		[]model.ChatTurn{model.NewChatTurn(model.RoleUser, "q")}, "", false)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := FindOne[model.ChatSession](ctx, s, ChatSessions, session.ID, "u1")
	require.NoError(t, err)
	require.Equal(t, "old-summary", got.RunningSummary)
}

func TestAppendTurnsUnknownSession(t *testing.T) {
	s := openTestStore(t)
	ok, err := s.AppendTurns(context.Background(), "missing", "u1", nil, "", false)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestChecklistByDay(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	list := model.NewDailyChecklist("u1", "2026-08-29", []model.ChecklistItem{
		model.NewChecklistItem("enc-text"),
	}, "")
	require.NoError(t, s.InsertChecklist(ctx, list))

	got, err := s.FindChecklistByDay(ctx, "u1", "2026-08-29")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, list.ID, got.ID)

	got, err = s.FindChecklistByDay(ctx, "u1", "2026-08-30")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestLatestState(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := model.NewStateSnapshot("u1", model.DefaultStateMetrics(), "a")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := model.NewStateSnapshot("u1", model.DefaultStateMetrics(), "b")

	require.NoError(t, InsertOne(ctx, s, States, older.ID, older.UserID, older))
	require.NoError(t, InsertOne(ctx, s, States, newer.ID, newer.UserID, newer))

	got, err := s.LatestState(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, newer.ID, got.ID)
}

func TestUsers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u := model.NewUser("a@b.c", "Ann", "hash")
	require.NoError(t, s.InsertUser(ctx, u))

	// duplicate email rejected
	require.Error(t, s.InsertUser(ctx, model.NewUser("a@b.c", "Dup", "hash2")))

	byEmail, err := s.FindUserByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	require.Equal(t, u.ID, byEmail.ID)
	require.Equal(t, "hash", byEmail.PasswordHash)

	byID, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)

	missing, err := s.FindUserByEmail(ctx, "no@one.here")
	require.NoError(t, err)
	require.Nil(t, missing)
}
