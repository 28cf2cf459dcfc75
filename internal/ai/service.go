// Package ai implements the language-model interactions: the reflection
// chat, summary refreshes, state analysis, task suggestions and dialog
// digests.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/nousapp/nous/internal/config"
	"github.com/nousapp/nous/internal/history"
	"github.com/nousapp/nous/internal/llm"
	"github.com/nousapp/nous/internal/logger"
	"github.com/nousapp/nous/internal/model"
)

// ErrNotConfigured is returned before any network call when no API key is
// set; the HTTP layer maps it to service-unavailable.
var ErrNotConfigured = errors.New("llm api key not configured")

// summaryInputLimit caps how much tail text a summary refresh sends to the
// model. Oldest detail past the cap has usually been folded into a prior
// summary generation already.
const summaryInputLimit = 2000

// Service performs model calls. One configured instance per process, shared
// by all request handlers.
type Service struct {
	client llm.Client
	cfg    config.LLMConfig
	chat   config.ChatConfig
}

// New creates a Service on top of an LLM client.
func New(client llm.Client, cfg config.LLMConfig, chat config.ChatConfig) *Service {
	return &Service{client: client, cfg: cfg, chat: chat}
}

// Complete sends messages to the configured model and returns the assistant
// reply. An empty model falls back to the primary one.
func (s *Service) Complete(ctx context.Context, messages []openai.ChatCompletionMessage, model string) (string, error) {
	if s.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}
	if model == "" {
		model = s.cfg.Model
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Reflection is a reflection-chat reply with the checklist marker already
// stripped out.
type Reflection struct {
	Response         string
	SuggestChecklist bool
}

// Reflect produces the assistant reply for one user turn given the optimized
// context.
func (s *Service) Reflect(ctx context.Context, contextMsgs []history.Message, message string) (Reflection, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(contextMsgs)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: reflectionSystemPrompt,
	})
	messages = append(messages, toOpenAI(contextMsgs)...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	content, err := s.Complete(ctx, messages, "")
	if err != nil {
		return Reflection{}, err
	}

	suggest := strings.Contains(content, SuggestChecklistMarker)
	clean := strings.TrimSpace(strings.ReplaceAll(content, SuggestChecklistMarker, ""))
	return Reflection{Response: clean, SuggestChecklist: suggest}, nil
}

// SummarizeTail collapses evicted turns into a short continuation-preserving
// digest. It never fails the caller: on any error it logs and returns the
// empty digest, leaving the previous standing summary in place.
func (s *Service) SummarizeTail(ctx context.Context, tail []history.Message) string {
	if len(tail) == 0 {
		return ""
	}

	text := DialogText(tail)
	if runes := []rune(text); len(runes) > summaryInputLimit {
		text = string(runes[len(runes)-summaryInputLimit:])
	}

	summaryModel := s.cfg.Model
	if s.chat.UseCheapModelForSummary && s.cfg.CheapModel != "" {
		summaryModel = s.cfg.CheapModel
	}

	content, err := s.Complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: summaryRefreshPrompt},
		{Role: openai.ChatMessageRoleUser, Content: text},
	}, summaryModel)
	if err != nil {
		logger.L.Warn("summary refresh failed; keeping previous summary", "error", err)
		return ""
	}
	return strings.TrimSpace(content)
}

// StateAnalysis is a parsed psychophysiological assessment.
type StateAnalysis struct {
	Metrics  model.StateMetrics
	Analysis string
}

// AnalyzeState derives a state assessment from journal or dialog content.
// A reply that cannot be parsed is a legitimate "no result", returned as
// (nil, nil); only transport failures produce an error.
func (s *Service) AnalyzeState(ctx context.Context, content string) (*StateAnalysis, error) {
	reply, err := s.Complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: stateAnalysisPrompt},
		{Role: openai.ChatMessageRoleUser, Content: content + "\n\nAnalyze the state and return JSON."},
	}, "")
	if err != nil {
		return nil, err
	}

	raw, ok := ExtractJSON(reply)
	if !ok {
		logger.L.Warn("state analysis reply had no JSON object")
		return nil, nil
	}
	var payload struct {
		Metrics  map[string]float64 `json:"metrics"`
		Analysis string             `json:"analysis"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		logger.L.Warn("state analysis JSON did not match contract", "error", err)
		return nil, nil
	}

	return &StateAnalysis{
		Metrics:  metricsFrom(payload.Metrics),
		Analysis: payload.Analysis,
	}, nil
}

// SuggestTasks proposes checklist items for the current dialog. Parse
// failures degrade to an empty suggestion.
func (s *Service) SuggestTasks(ctx context.Context, message string, hist []history.Message) (model.ChecklistSuggestion, error) {
	fallback := model.ChecklistSuggestion{
		Items:     []string{},
		Reasoning: "Could not generate suggestions",
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(hist)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: checklistSuggestionPrompt,
	})
	messages = append(messages, toOpenAI(hist)...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: "Latest message: " + message + "\n\nSuggest tasks and return JSON.",
	})

	reply, err := s.Complete(ctx, messages, "")
	if err != nil {
		return fallback, err
	}

	raw, ok := ExtractJSON(reply)
	if !ok {
		return fallback, nil
	}
	var suggestion model.ChecklistSuggestion
	if err := json.Unmarshal(raw, &suggestion); err != nil {
		return fallback, nil
	}
	if suggestion.Items == nil {
		suggestion.Items = []string{}
	}
	return suggestion, nil
}

// NoteDraft is a dialog digest shaped as a note.
type NoteDraft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SummarizeDialog turns a full dialog into a note draft. Unparseable replies
// come back as (nil, nil).
func (s *Service) SummarizeDialog(ctx context.Context, dialog string) (*NoteDraft, error) {
	reply, err := s.Complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: dialogSummaryPrompt},
		{Role: openai.ChatMessageRoleUser, Content: "Dialog:\n" + dialog + "\n\nCreate the digest and return JSON."},
	}, "")
	if err != nil {
		return nil, err
	}

	raw, ok := ExtractJSON(reply)
	if !ok {
		return nil, nil
	}
	var draft NoteDraft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, nil
	}
	return &draft, nil
}

// DialogText renders messages as readable "User:"/"Assistant:" lines.
func DialogText(msgs []history.Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		speaker := "Assistant"
		if m.Role == model.RoleUser {
			speaker = "User"
		}
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

func toOpenAI(msgs []history.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

func metricsFrom(values map[string]float64) model.StateMetrics {
	m := model.DefaultStateMetrics()
	set := func(dst *float64, key string) {
		if v, ok := values[key]; ok {
			*dst = v
		}
	}
	set(&m.Dopamine, "dopamine")
	set(&m.Serotonin, "serotonin")
	set(&m.GABA, "gaba")
	set(&m.Noradrenaline, "noradrenaline")
	set(&m.Cortisol, "cortisol")
	set(&m.Testosterone, "testosterone")
	set(&m.PFCActivity, "pfc_activity")
	set(&m.Focus, "focus")
	set(&m.Energy, "energy")
	set(&m.Motivation, "motivation")
	return m
}
