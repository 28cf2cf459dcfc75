package agent

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/nousapp/nous/internal/ai"
	"github.com/nousapp/nous/internal/config"
	"github.com/nousapp/nous/internal/crypto"
	"github.com/nousapp/nous/internal/history"
	"github.com/nousapp/nous/internal/model"
	"github.com/nousapp/nous/internal/store"
)

// mockLLM dispatches on the request because the summary refresh and the main
// completion may run concurrently.
type mockLLM struct {
	mu       sync.Mutex
	handler  func(req openai.ChatCompletionRequest) (string, error)
	requests []openai.ChatCompletionRequest
}

func (m *mockLLM) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	content, err := m.handler(req)
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}},
	}, nil
}

func (m *mockLLM) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

type fixture struct {
	agent *Agent
	store *store.Store
	codec *crypto.Codec
	mock  *mockLLM
}

func newFixture(t *testing.T, handler func(req openai.ChatCompletionRequest) (string, error)) *fixture {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "agent.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cipher, err := crypto.NewCipher("agent-test-secret")
	require.NoError(t, err)
	codec := crypto.NewCodec(cipher)

	llmCfg := config.LLMConfig{APIKey: "test-key", Model: "gpt-4o", CheapModel: "gpt-4o-mini"}
	chatCfg := config.ChatConfig{HistoryLimit: 10, SummarizeAfter: 6, UseCheapModelForSummary: true}
	mock := &mockLLM{handler: handler}
	aiSvc := ai.New(mock, llmCfg, chatCfg)

	return &fixture{
		agent: New(aiSvc, st, codec, chatCfg),
		store: st,
		codec: codec,
		mock:  mock,
	}
}

func replyWith(content string) func(req openai.ChatCompletionRequest) (string, error) {
	return func(req openai.ChatCompletionRequest) (string, error) {
		return content, nil
	}
}

func makeHistory(n int) []history.Message {
	msgs := make([]history.Message, 0, n)
	for i := 0; i < n; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		msgs = append(msgs, history.Message{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}
	return msgs
}

func TestProcessTurnEphemeral(t *testing.T) {
	f := newFixture(t, replyWith("You did well today."))

	result, err := f.agent.ProcessTurn(context.Background(), TurnRequest{
		UserID:  "u1",
		Message: "How did I do?",
	})
	require.NoError(t, err)
	require.Equal(t, "You did well today.", result.Response)
	require.False(t, result.SuggestChecklist)
	require.Empty(t, result.HistorySummary)
	require.Equal(t, 1, f.mock.requestCount())
}

func TestProcessTurnStripsMarker(t *testing.T) {
	f := newFixture(t, replyWith("Let's plan it out. [SUGGEST_CHECKLIST]"))

	result, err := f.agent.ProcessTurn(context.Background(), TurnRequest{
		UserID:  "u1",
		Message: "What should I do?",
	})
	require.NoError(t, err)
	require.True(t, result.SuggestChecklist)
	require.Equal(t, "Let's plan it out.", result.Response)
}

func TestProcessTurnPersistsEncryptedPair(t *testing.T) {
	f := newFixture(t, replyWith("reply text"))
	ctx := context.Background()

	session := f.codec.EncryptSession(model.NewChatSession("u1", "a session"))
	require.NoError(t, store.InsertOne(ctx, f.store, store.ChatSessions, session.ID, "u1", session))

	_, err := f.agent.ProcessTurn(ctx, TurnRequest{
		UserID:    "u1",
		SessionID: session.ID,
		Message:   "a private thought",
	})
	require.NoError(t, err)

	stored, err := store.FindOne[model.ChatSession](ctx, f.store, store.ChatSessions, session.ID, "u1")
	require.NoError(t, err)
	require.Len(t, stored.Turns, 2)

	// at rest the contents must be ciphertext
	require.NotEqual(t, "a private thought", stored.Turns[0].Content)
	require.NotEqual(t, "reply text", stored.Turns[1].Content)

	plain := f.codec.DecryptSession(*stored)
	require.Equal(t, model.RoleUser, plain.Turns[0].Role)
	require.Equal(t, "a private thought", plain.Turns[0].Content)
	require.Equal(t, model.RoleAssistant, plain.Turns[1].Role)
	require.Equal(t, "reply text", plain.Turns[1].Content)
}

func TestProcessTurnRefreshesSummary(t *testing.T) {
	f := newFixture(t, func(req openai.ChatCompletionRequest) (string, error) {
		if req.Model == "gpt-4o-mini" {
			return "A digest of older turns.", nil
		}
		return "main reply", nil
	})
	ctx := context.Background()

	session := f.codec.EncryptSession(model.NewChatSession("u1", "long one"))
	require.NoError(t, store.InsertOne(ctx, f.store, store.ChatSessions, session.ID, "u1", session))

	result, err := f.agent.ProcessTurn(ctx, TurnRequest{
		UserID:    "u1",
		SessionID: session.ID,
		Message:   "one more thing",
		History:   makeHistory(15),
	})
	require.NoError(t, err)
	require.Equal(t, "main reply", result.Response)
	require.Equal(t, "A digest of older turns.", result.HistorySummary)
	require.Equal(t, 2, f.mock.requestCount())

	stored, err := store.FindOne[model.ChatSession](ctx, f.store, store.ChatSessions, session.ID, "u1")
	require.NoError(t, err)
	require.NotEmpty(t, stored.RunningSummary)
	require.NotEqual(t, "A digest of older turns.", stored.RunningSummary)
	require.Equal(t, "A digest of older turns.", f.codec.DecryptSession(*stored).RunningSummary)
}

func TestProcessTurnSummarizerFailureDegrades(t *testing.T) {
	f := newFixture(t, func(req openai.ChatCompletionRequest) (string, error) {
		if req.Model == "gpt-4o-mini" {
			return "", errors.New("summarizer down")
		}
		return "main reply", nil
	})
	ctx := context.Background()

	session := f.codec.EncryptSession(model.NewChatSession("u1", "s"))
	session.RunningSummary = f.codec.Encrypt("previous summary")
	require.NoError(t, store.InsertOne(ctx, f.store, store.ChatSessions, session.ID, "u1", session))

	result, err := f.agent.ProcessTurn(ctx, TurnRequest{
		UserID:         "u1",
		SessionID:      session.ID,
		Message:        "hello",
		History:        makeHistory(15),
		HistorySummary: "previous summary",
	})
	require.NoError(t, err)
	require.Equal(t, "main reply", result.Response)
	require.Empty(t, result.HistorySummary)

	// the previous summary stays in place
	stored, err := store.FindOne[model.ChatSession](ctx, f.store, store.ChatSessions, session.ID, "u1")
	require.NoError(t, err)
	require.Equal(t, "previous summary", f.codec.DecryptSession(*stored).RunningSummary)
}

func TestProcessTurnShortHistorySkipsSummarizer(t *testing.T) {
	f := newFixture(t, replyWith("ok"))

	result, err := f.agent.ProcessTurn(context.Background(), TurnRequest{
		UserID:  "u1",
		Message: "hi",
		History: makeHistory(4),
	})
	require.NoError(t, err)
	require.Empty(t, result.HistorySummary)
	require.Equal(t, 1, f.mock.requestCount())
}

func TestProcessTurnLLMErrorFailsTurn(t *testing.T) {
	f := newFixture(t, func(req openai.ChatCompletionRequest) (string, error) {
		return "", context.DeadlineExceeded
	})

	_, err := f.agent.ProcessTurn(context.Background(), TurnRequest{UserID: "u1", Message: "hi"})
	require.Error(t, err)
}

func TestProcessTurnUpdatesState(t *testing.T) {
	f := newFixture(t, func(req openai.ChatCompletionRequest) (string, error) {
		if strings.Contains(req.Messages[0].Content, "psychophysiological") {
			return `{"metrics": {"dopamine": 7, "cortisol": 3}, "analysis": "You sound rested."}`, nil
		}
		return "main reply", nil
	})
	ctx := context.Background()

	result, err := f.agent.ProcessTurn(ctx, TurnRequest{
		UserID:      "u1",
		Message:     "slept well",
		UpdateState: true,
	})
	require.NoError(t, err)
	require.True(t, result.StateUpdated)
	require.NotNil(t, result.State)
	require.Equal(t, 7.0, result.State.Metrics.Dopamine)
	require.Equal(t, 3.0, result.State.Metrics.Cortisol)
	require.Equal(t, 5.0, result.State.Metrics.Focus)
	require.Equal(t, "You sound rested.", result.State.Analysis)

	stored, err := f.store.LatestState(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.NotEqual(t, "You sound rested.", stored.Analysis)
	require.Equal(t, "You sound rested.", f.codec.DecryptSnapshot(*stored).Analysis)
}

func TestProcessTurnStateAnalysisFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, func(req openai.ChatCompletionRequest) (string, error) {
		if strings.Contains(req.Messages[0].Content, "psychophysiological") {
			return "Sure! Here's your analysis", nil
		}
		return "main reply", nil
	})

	result, err := f.agent.ProcessTurn(context.Background(), TurnRequest{
		UserID:      "u1",
		Message:     "hi",
		UpdateState: true,
	})
	require.NoError(t, err)
	require.Equal(t, "main reply", result.Response)
	require.False(t, result.StateUpdated)
	require.Nil(t, result.State)
}

func TestCreateSummaryNote(t *testing.T) {
	f := newFixture(t, replyWith(`{"title": "Focus wins", "content": "- protect mornings"}`))
	ctx := context.Background()

	session := model.NewChatSession("u1", "s")
	session.Turns = []model.ChatTurn{
		model.NewChatTurn(model.RoleUser, "I focus best in the morning"),
		model.NewChatTurn(model.RoleAssistant, "Protect that time."),
	}
	encrypted := f.codec.EncryptSession(session)
	require.NoError(t, store.InsertOne(ctx, f.store, store.ChatSessions, encrypted.ID, "u1", encrypted))

	note, err := f.agent.CreateSummaryNote(ctx, "u1", session.ID)
	require.NoError(t, err)
	require.Contains(t, note.Title, "Focus wins")
	require.Contains(t, note.Content, "- protect mornings")

	stored, err := store.FindOne[model.Note](ctx, f.store, store.Notes, note.ID, "u1")
	require.NoError(t, err)
	require.NotEqual(t, note.Content, stored.Content)
	require.Equal(t, note.Content, f.codec.DecryptNote(*stored).Content)
}

func TestCreateSummaryNoteTooFewTurns(t *testing.T) {
	f := newFixture(t, replyWith("unused"))
	ctx := context.Background()

	session := f.codec.EncryptSession(model.NewChatSession("u1", "empty"))
	require.NoError(t, store.InsertOne(ctx, f.store, store.ChatSessions, session.ID, "u1", session))

	_, err := f.agent.CreateSummaryNote(ctx, "u1", session.ID)
	require.ErrorIs(t, err, ErrNotEnoughTurns)
}

func TestCreateSummaryNoteUnknownSession(t *testing.T) {
	f := newFixture(t, replyWith("unused"))
	_, err := f.agent.CreateSummaryNote(context.Background(), "u1", "missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAnalyzeStateFromNotes(t *testing.T) {
	f := newFixture(t, replyWith(`{"metrics": {"energy": 2}, "analysis": "You are running on empty."}`))
	ctx := context.Background()

	note := f.codec.EncryptNote(model.NewNote("u1", "tired", "barely slept"))
	require.NoError(t, store.InsertOne(ctx, f.store, store.Notes, note.ID, "u1", note))

	snapshot, err := f.agent.AnalyzeStateFromNotes(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 2.0, snapshot.Metrics.Energy)
	require.Equal(t, "You are running on empty.", snapshot.Analysis)

	// the analyzer must have seen the decrypted note text
	require.Contains(t, f.mock.requests[0].Messages[1].Content, "barely slept")

	stored, err := f.store.LatestState(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestAnalyzeStateFromNotesRequiresNotes(t *testing.T) {
	f := newFixture(t, replyWith("unused"))
	_, err := f.agent.AnalyzeStateFromNotes(context.Background(), "u1")
	require.ErrorIs(t, err, ErrNoNotes)
}
