// Package agent orchestrates one conversation turn: optimize history, query
// the model, persist encrypted turns, optionally refresh the running summary
// and the state snapshot.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/qmuntal/stateless"

	"github.com/nousapp/nous/internal/ai"
	"github.com/nousapp/nous/internal/config"
	"github.com/nousapp/nous/internal/crypto"
	"github.com/nousapp/nous/internal/history"
	"github.com/nousapp/nous/internal/logger"
	"github.com/nousapp/nous/internal/model"
	"github.com/nousapp/nous/internal/store"
)

// FSM states
type FSMState stateless.State

var (
	StateReceived         FSMState = "Received"
	StateHistoryOptimized FSMState = "HistoryOptimized"
	StateSummarizing      FSMState = "Summarizing"
	StateModelQueried     FSMState = "ModelQueried"
	StatePersisted        FSMState = "Persisted"
	StateStateAnalyzed    FSMState = "StateAnalyzed"
	StateResponded        FSMState = "Responded" // Terminal: reply produced
	StateFailed           FSMState = "Failed"    // Terminal: no reply
)

// FSM triggers
type FSMTrigger stateless.Trigger

var (
	TriggerTurnAccepted      FSMTrigger = "TurnAccepted"
	TriggerSummaryRequested  FSMTrigger = "SummaryRequested"
	TriggerContextBuilt      FSMTrigger = "ContextBuilt"
	TriggerReplyObtained     FSMTrigger = "ReplyObtained"
	TriggerAnalysisRequested FSMTrigger = "AnalysisRequested"
	TriggerResponseReady     FSMTrigger = "ResponseReady"
	TriggerErrorOccurred     FSMTrigger = "ErrorOccurred"
)

// Sentinel errors mapped to client-facing failures by the HTTP layer.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotEnoughTurns  = errors.New("not enough turns for a summary")
	ErrNoNotes         = errors.New("no notes found for analysis")
	ErrNoResult        = errors.New("model returned no usable result")
)

// TurnRequest is one inbound chat turn. History and HistorySummary are the
// client's view of the conversation so far; SessionID empty means the turn
// is ephemeral and nothing is persisted.
type TurnRequest struct {
	UserID         string
	SessionID      string
	Message        string
	History        []history.Message
	HistorySummary string
	UpdateState    bool
}

// TurnResult is the reply for one turn.
type TurnResult struct {
	Response         string               `json:"response"`
	SuggestChecklist bool                 `json:"suggest_checklist"`
	HistorySummary   string               `json:"history_summary,omitempty"`
	StateUpdated     bool                 `json:"state_updated,omitempty"`
	State            *model.StateSnapshot `json:"state,omitempty"`
}

// Agent ties the optimizer, the model service, the field codec and the store
// together. One instance per process, shared by all request handlers.
type Agent struct {
	ai    *ai.Service
	store *store.Store
	codec *crypto.Codec
	chat  config.ChatConfig
}

// New creates the orchestrator.
func New(aiSvc *ai.Service, st *store.Store, codec *crypto.Codec, chat config.ChatConfig) *Agent {
	return &Agent{ai: aiSvc, store: st, codec: codec, chat: chat}
}

func (a *Agent) windowCfg() history.Config {
	return history.Config{
		WindowSize:       a.chat.HistoryLimit,
		RefreshThreshold: a.chat.SummarizeAfter,
	}
}

// ProcessTurn runs the per-turn state machine:
// Received → HistoryOptimized → [Summarizing] → ModelQueried → Persisted →
// [StateAnalyzed] → Responded.
//
// The summary refresh runs concurrently with the main completion and is
// joined before persistence; its failure degrades to "no refresh this turn".
// State analysis is a best-effort side channel and never fails the turn.
// Any failure to produce the core reply surfaces as an error with no partial
// result.
func (a *Agent) ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	type turnContext struct {
		contextMsgs  []history.Message
		tail         []history.Message
		needsRefresh bool
		summaryCh    chan string
		newSummary   string
		reflection   ai.Reflection
		snapshot     *model.StateSnapshot
		lastErr      error
	}
	tc := &turnContext{}

	fsm := stateless.NewStateMachine(StateReceived)

	fsm.Configure(StateReceived).
		Permit(TriggerTurnAccepted, StateHistoryOptimized)

	fsm.Configure(StateHistoryOptimized).
		OnEntry(func(ctx context.Context, _ ...any) error {
			tc.contextMsgs, tc.needsRefresh = history.Optimize(req.History, req.HistorySummary, a.windowCfg())
			tc.tail = history.Tail(req.History, a.windowCfg())
			if tc.needsRefresh && len(tc.tail) > 0 {
				return fsm.FireCtx(ctx, TriggerSummaryRequested)
			}
			return fsm.FireCtx(ctx, TriggerContextBuilt)
		}).
		Permit(TriggerSummaryRequested, StateSummarizing).
		Permit(TriggerContextBuilt, StateModelQueried)

	fsm.Configure(StateSummarizing).
		OnEntry(func(ctx context.Context, _ ...any) error {
			tc.summaryCh = make(chan string, 1)
			tail := tc.tail
			go func() {
				tc.summaryCh <- a.ai.SummarizeTail(ctx, tail)
			}()
			return fsm.FireCtx(ctx, TriggerContextBuilt)
		}).
		Permit(TriggerContextBuilt, StateModelQueried)

	fsm.Configure(StateModelQueried).
		OnEntry(func(ctx context.Context, _ ...any) error {
			reflection, err := a.ai.Reflect(ctx, tc.contextMsgs, req.Message)
			if err != nil {
				tc.lastErr = err
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}
			tc.reflection = reflection
			if tc.summaryCh != nil {
				// join the concurrent refresh; empty means it failed
				tc.newSummary = <-tc.summaryCh
			}
			return fsm.FireCtx(ctx, TriggerReplyObtained)
		}).
		Permit(TriggerReplyObtained, StatePersisted).
		Permit(TriggerErrorOccurred, StateFailed)

	fsm.Configure(StatePersisted).
		OnEntry(func(ctx context.Context, _ ...any) error {
			if req.SessionID != "" {
				if err := a.persistTurn(ctx, req, tc.reflection.Response, tc.newSummary); err != nil {
					tc.lastErr = err
					return fsm.FireCtx(ctx, TriggerErrorOccurred)
				}
			}
			if req.UpdateState {
				return fsm.FireCtx(ctx, TriggerAnalysisRequested)
			}
			return fsm.FireCtx(ctx, TriggerResponseReady)
		}).
		Permit(TriggerAnalysisRequested, StateStateAnalyzed).
		Permit(TriggerResponseReady, StateResponded).
		Permit(TriggerErrorOccurred, StateFailed)

	fsm.Configure(StateStateAnalyzed).
		OnEntry(func(ctx context.Context, _ ...any) error {
			tc.snapshot = a.analyzeTurnState(ctx, req)
			return fsm.FireCtx(ctx, TriggerResponseReady)
		}).
		Permit(TriggerResponseReady, StateResponded)

	fsm.Configure(StateResponded)
	fsm.Configure(StateFailed)

	if err := fsm.FireCtx(ctx, TriggerTurnAccepted); err != nil {
		return nil, fmt.Errorf("turn processing: %w", err)
	}

	switch current := fsm.MustState(); current {
	case StateResponded:
		result := &TurnResult{
			Response:         tc.reflection.Response,
			SuggestChecklist: tc.reflection.SuggestChecklist,
			HistorySummary:   tc.newSummary,
		}
		if tc.snapshot != nil {
			result.StateUpdated = true
			result.State = tc.snapshot
		}
		return result, nil
	case StateFailed:
		if tc.lastErr != nil {
			return nil, tc.lastErr
		}
		return nil, errors.New("turn failed without a specific error")
	default:
		return nil, fmt.Errorf("turn ended in an unexpected state: %v", current)
	}
}

// persistTurn appends the encrypted user+assistant pair, plus the refreshed
// summary when one was produced, as a single atomic session update.
func (a *Agent) persistTurn(ctx context.Context, req TurnRequest, response, newSummary string) error {
	pair := []model.ChatTurn{
		a.codec.EncryptTurn(model.NewChatTurn(model.RoleUser, req.Message)),
		a.codec.EncryptTurn(model.NewChatTurn(model.RoleAssistant, response)),
	}
	refreshed := newSummary != ""
	encSummary := ""
	if refreshed {
		encSummary = a.codec.Encrypt(newSummary)
	}

	found, err := a.store.AppendTurns(ctx, req.SessionID, req.UserID, pair, encSummary, refreshed)
	if err != nil {
		return fmt.Errorf("persist turn: %w", err)
	}
	if !found {
		logger.L.Warn("turn addressed an unknown session; not persisted", "session_id", req.SessionID)
	}
	return nil
}

// analyzeTurnState runs the best-effort state analysis for one turn and
// persists the snapshot. Returns nil on any failure.
func (a *Agent) analyzeTurnState(ctx context.Context, req TurnRequest) *model.StateSnapshot {
	content := ai.DialogText(req.History)
	if content != "" {
		content += "\n"
	}
	content += "User: " + req.Message

	analysis, err := a.ai.AnalyzeState(ctx, content)
	if err != nil {
		logger.L.Error("state analysis failed", "error", err)
		return nil
	}
	if analysis == nil {
		return nil
	}

	snapshot := model.NewStateSnapshot(req.UserID, analysis.Metrics, analysis.Analysis)
	encrypted := a.codec.EncryptSnapshot(snapshot)
	if err := store.InsertOne(ctx, a.store, store.States, encrypted.ID, encrypted.UserID, encrypted); err != nil {
		logger.L.Error("state snapshot not persisted", "error", err)
		return nil
	}
	return &snapshot
}

// CreateSummaryNote folds a whole session dialog into a persisted note.
func (a *Agent) CreateSummaryNote(ctx context.Context, userID, sessionID string) (*model.Note, error) {
	stored, err := store.FindOne[model.ChatSession](ctx, a.store, store.ChatSessions, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrSessionNotFound
	}
	session := a.codec.DecryptSession(*stored)
	if len(session.Turns) < 2 {
		return nil, ErrNotEnoughTurns
	}

	msgs := make([]history.Message, len(session.Turns))
	for i, t := range session.Turns {
		msgs[i] = history.Message{Role: t.Role, Content: t.Content}
	}

	draft, err := a.ai.SummarizeDialog(ctx, ai.DialogText(msgs))
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, ErrNoResult
	}

	note := model.NewNote(userID,
		"✨ "+draft.Title,
		"🤖 AI digest from dialog\n\n"+draft.Content)
	encrypted := a.codec.EncryptNote(note)
	if err := store.InsertOne(ctx, a.store, store.Notes, encrypted.ID, encrypted.UserID, encrypted); err != nil {
		return nil, err
	}
	return &note, nil
}

// AnalyzeStateFromNotes derives and persists a state snapshot from the
// user's most recent notes.
func (a *Agent) AnalyzeStateFromNotes(ctx context.Context, userID string) (*model.StateSnapshot, error) {
	notes, err := store.Find[model.Note](ctx, a.store, store.Notes, userID, 5)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, ErrNoNotes
	}

	corpus := "User's journal entries:\n"
	for i, n := range notes {
		plain := a.codec.DecryptNote(n)
		if i > 0 {
			corpus += "\n\n"
		}
		corpus += "**" + plain.Title + "**\n" + plain.Content
	}

	analysis, err := a.ai.AnalyzeState(ctx, corpus)
	if err != nil {
		return nil, err
	}
	if analysis == nil {
		return nil, ErrNoResult
	}

	snapshot := model.NewStateSnapshot(userID, analysis.Metrics, analysis.Analysis)
	encrypted := a.codec.EncryptSnapshot(snapshot)
	if err := store.InsertOne(ctx, a.store, store.States, encrypted.ID, encrypted.UserID, encrypted); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
