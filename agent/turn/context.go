package turn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/luis-bzk/llm-agent/agent/contract"
	"github.com/luis-bzk/llm-agent/domain"
	"github.com/luis-bzk/llm-agent/store"
)

// LoadedContext is everything one turn needs, loaded up front. The process
// keeps no dialogue state between turns; the store is the only memory.
type LoadedContext struct {
	Client       *domain.Client
	Branch       *domain.Branch
	Branches     []domain.Branch
	User         *domain.User
	Session      *domain.Session
	Conversation *domain.Conversation
	Summary      string

	// History is the bounded durable history, oldest first, with the
	// inbound message already persisted and included.
	History []contractx.TurnMessage

	// Duplicate is set when the inbound text repeats the last stored human
	// message; the message is then not persisted a second time.
	Duplicate bool
}

// Loader assembles a LoadedContext from the store. Loading also persists the
// inbound human message: it must be durable before the assistant runs so a
// crash mid-turn never loses what the caller said.
type Loader struct {
	store *store.Store
	now   func() time.Time
}

func NewLoader(st *store.Store) *Loader {
	return &Loader{store: st, now: time.Now}
}

// withSummaryHistory bounds the history loaded alongside an existing
// summary; the summary itself covers the rest.
const withSummaryHistory = 6

// ResolveTenant maps the contacted number to an active client.
func (l *Loader) ResolveTenant(ctx context.Context, contactNumber string) (*domain.Client, error) {
	client, err := l.store.Clients.GetByContactNumber(ctx, contactNumber)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: no client for %s", contractx.ErrUnknownTenant, contactNumber)
		}
		return nil, err
	}
	if !client.Active {
		return nil, fmt.Errorf("%w: client %s is inactive", contractx.ErrUnknownTenant, client.ID)
	}
	return client, nil
}

// Load builds the turn context for an already resolved tenant and persists
// the inbound message unless it duplicates the last stored one.
func (l *Loader) Load(ctx context.Context, client *domain.Client, callerPhone, text string, cfg contractx.TurnConfig) (*LoadedContext, error) {
	lc := &LoadedContext{Client: client}

	branches, err := l.store.Branches.ListByClient(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	lc.Branches = branches
	if len(branches) == 1 {
		lc.Branch = &branches[0]
	}

	user, err := l.store.Users.GetByPhone(ctx, client.ID, callerPhone)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	lc.User = user

	session, err := l.store.Sessions.GetOrCreate(ctx, client.ID, callerPhone)
	if err != nil {
		return nil, err
	}
	if user != nil && session.UserID == "" {
		if err := l.store.Sessions.LinkUser(ctx, session.ID, user.ID); err != nil {
			log.Warn().Err(err).Str("session", session.ID).Msg("session user link failed")
		} else {
			session.UserID = user.ID
		}
	}
	lc.Session = session

	conv, err := l.activeConversation(ctx, session.ID, cfg.ConversationTimeout)
	if err != nil {
		return nil, err
	}
	lc.Conversation = conv
	lc.Summary = conv.Summary

	limit := cfg.MaxMessagesInContext
	if conv.Summary != "" {
		limit = withSummaryHistory
	}
	history, err := l.store.Messages.Recent(ctx, conv.ID, limit)
	if err != nil {
		return nil, err
	}
	for _, m := range history {
		lc.History = append(lc.History, contractx.TurnMessage{Role: string(m.Role), Content: m.Content})
	}

	if n := len(history); n > 0 && history[n-1].Role == domain.RoleHuman && history[n-1].Content == text {
		lc.Duplicate = true
	} else {
		if _, err := l.store.Messages.Append(ctx, conv.ID, domain.RoleHuman, text); err != nil {
			return nil, err
		}
		lc.History = append(lc.History, contractx.TurnMessage{Role: contractx.RoleHuman, Content: text})
	}

	if err := l.store.Sessions.Touch(ctx, session.ID, l.now()); err != nil {
		log.Warn().Err(err).Str("session", session.ID).Msg("session touch failed")
	}
	return lc, nil
}

// activeConversation returns the session's latest conversation if its last
// activity is within the timeout, otherwise starts a fresh one.
func (l *Loader) activeConversation(ctx context.Context, sessionID string, timeout time.Duration) (*domain.Conversation, error) {
	conv, err := l.store.Conversations.Latest(ctx, sessionID)
	switch {
	case err == nil:
		last := conv.LastMessageAt
		if last.IsZero() {
			last = conv.CreatedAt
		}
		if timeout <= 0 || l.now().Sub(last) <= timeout {
			return conv, nil
		}
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}
	return l.store.Conversations.Create(ctx, sessionID)
}
