// Package turn drives one stateless dialogue turn: load context, invoke the
// assistant, run requested operations, persist the reply, and maintain the
// running summary. All durable state lives in the store.
package turn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/luis-bzk/llm-agent/agent/contract"
	"github.com/luis-bzk/llm-agent/agent/prompt"
	"github.com/luis-bzk/llm-agent/domain"
	"github.com/luis-bzk/llm-agent/store"
)

// escalationReply is sent when the assistant keeps requesting operations
// past the round cap and produced no usable text of its own.
const escalationReply = "I'm having trouble completing that right now. Let me get a colleague to help you; they will reach out shortly."

// Scheduler runs turns. It is safe for concurrent use; turns for the same
// session are serialized so interleaved messages from one caller cannot
// corrupt conversation ordering.
type Scheduler struct {
	store     *store.Store
	loader    *Loader
	assistant contractx.Assistant
	executor  contractx.OpExecutor
	specs     []contractx.OpSpec

	mu    sync.Mutex
	locks map[string]*sessionLock

	now func() time.Time
}

func NewScheduler(st *store.Store, assistant contractx.Assistant, executor contractx.OpExecutor, specs []contractx.OpSpec) *Scheduler {
	return &Scheduler{
		store:     st,
		loader:    NewLoader(st),
		assistant: assistant,
		executor:  executor,
		specs:     specs,
		locks:     map[string]*sessionLock{},
		now:       time.Now,
	}
}

// TurnRequest is one inbound message: From is the caller's number, To the
// business number the message was addressed to.
type TurnRequest struct {
	From string
	To   string
	Text string
}

// HandleTurn executes the full turn pipeline and returns the assistant's
// final reply. ErrUnknownTenant is returned when To maps to no active
// client; other failures are infrastructure errors.
func (s *Scheduler) HandleTurn(ctx context.Context, req TurnRequest) (*contractx.TurnResult, error) {
	cfg := loadTurnConfig(ctx, s.store.Config)

	client, err := s.loader.ResolveTenant(ctx, req.To)
	if err != nil {
		return nil, err
	}
	if client.BookingWindowDays > 0 {
		cfg.BookingWindowDays = client.BookingWindowDays
	}

	unlock := s.lockSession(client.ID + "|" + req.From)
	defer unlock()

	lc, err := s.loader.Load(ctx, client, req.From, req.Text, cfg)
	if err != nil {
		return nil, err
	}

	system := contractx.SystemContext{
		Client:      lc.Client,
		Branch:      lc.Branch,
		Branches:    lc.Branches,
		User:        lc.User,
		Summary:     lc.Summary,
		CallerPhone: req.From,
		Now:         s.now(),
	}
	systemPrompt, err := prompt.System(system)
	if err != nil {
		return nil, err
	}
	env := contractx.OpEnv{System: system, Config: cfg, SessionID: lc.Session.ID}

	working := append([]contractx.TurnMessage(nil), lc.History...)
	finalText, working, escalated, err := s.reason(ctx, systemPrompt, working, env)
	if err != nil {
		return nil, err
	}

	// The human message is already durable. Losing the assistant row costs
	// history, not the reply, so the turn still answers.
	if _, err := s.store.Messages.Append(ctx, lc.Conversation.ID, domain.RoleAssistant, finalText); err != nil {
		log.Error().Err(err).
			Str("conversation", lc.Conversation.ID).
			Msg("assistant message persist failed, replying anyway")
	} else {
		s.summarize(ctx, lc.Conversation, cfg)
	}

	result := &contractx.TurnResult{
		Reply:          finalText,
		ConversationID: lc.Conversation.ID,
		Escalated:      escalated,
		Working:        working,
	}
	if lc.User != nil {
		result.UserID = lc.User.ID
	}
	return result, nil
}

// reason is the assistant/operations loop. Each round the assistant either
// answers or requests operations; requested operations run and their results
// join the working sequence for the next round. The round cap bounds runaway
// loops; hitting it flags the turn for human escalation.
func (s *Scheduler) reason(ctx context.Context, systemPrompt string, working []contractx.TurnMessage, env contractx.OpEnv) (string, []contractx.TurnMessage, bool, error) {
	for round := 0; ; round++ {
		reply, err := s.assistant.Invoke(ctx, systemPrompt, working, s.specs, env.Config)
		if err != nil {
			return "", nil, false, err
		}

		if len(reply.RequestedOps) == 0 {
			text := strings.TrimSpace(reply.Text)
			if text == "" {
				text = escalationReply
				return text, working, true, nil
			}
			return text, working, false, nil
		}

		working = append(working, contractx.TurnMessage{
			Role:      contractx.RoleAssistant,
			Content:   reply.Text,
			ToolCalls: reply.RequestedOps,
		})

		if round >= env.Config.MaxToolRounds {
			log.Warn().Err(contractx.ErrToolLoopExceeded).Int("rounds", round).Msg("escalating")
			text := strings.TrimSpace(reply.Text)
			if text == "" {
				text = escalationReply
			}
			return text, working, true, nil
		}

		results := s.executor.Execute(ctx, reply.RequestedOps, env)
		for _, res := range results {
			content := res.Error
			if content == "" {
				content = encodeResult(res.Result)
			}
			working = append(working, contractx.TurnMessage{
				Role:       contractx.RoleTool,
				Content:    content,
				ToolCallID: res.ID,
			})
		}
	}
}

// summarize maintains the conversation summary after the turn's messages are
// durable. Failures are logged and swallowed; the reply already went out and
// a stale summary only costs context quality.
func (s *Scheduler) summarize(ctx context.Context, conv *domain.Conversation, cfg contractx.TurnConfig) {
	count, err := s.store.Messages.CountByConversation(ctx, conv.ID)
	if err != nil {
		log.Warn().Err(err).Str("conversation", conv.ID).Msg("message count failed, skipping summary")
		return
	}
	if count <= cfg.SummaryThreshold {
		return
	}

	messages, err := s.store.Messages.Recent(ctx, conv.ID, 0)
	if err != nil {
		log.Warn().Err(err).Str("conversation", conv.ID).Msg("history read failed, skipping summary")
		return
	}

	fresh, err := s.store.Conversations.Get(ctx, conv.ID)
	if err != nil {
		log.Warn().Err(err).Str("conversation", conv.ID).Msg("conversation read failed, skipping summary")
		return
	}

	var summaryPrompt string
	if fresh.Summary != "" {
		recent := messages
		if len(recent) > 4 {
			recent = recent[len(recent)-4:]
		}
		summaryPrompt, err = prompt.SummaryUpdate(fresh.Summary, prompt.Transcript(recent))
	} else {
		head := messages
		if len(head) > 2 {
			head = head[:len(head)-2]
		}
		summaryPrompt, err = prompt.SummaryCreate(prompt.Transcript(head))
	}
	if err != nil {
		log.Error().Err(err).Msg("summary prompt build failed")
		return
	}

	summary, err := s.assistant.Complete(ctx, summaryPrompt, cfg)
	if err != nil {
		log.Error().Err(errors.Join(contractx.ErrSummarizationFailed, err)).
			Str("conversation", conv.ID).
			Msg("summary generation failed")
		return
	}
	if err := s.store.Conversations.UpdateSummary(ctx, conv.ID, summary); err != nil {
		log.Error().Err(err).Str("conversation", conv.ID).Msg("summary persist failed")
	}
}

// encodeResult renders an operation result for the working sequence.
// Strings pass through; everything else goes out as JSON.
func encodeResult(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// sessionLock is a refcounted mutex, evicted from the lock map once no
// turn holds or waits on it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// lockSession serializes turns per (client, caller) pair within this
// process. Cross-process serialization is not needed: message ordering only
// matters within one caller's dialogue, and a caller talks to one instance.
func (s *Scheduler) lockSession(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sessionLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}
