package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/ledger"
	"github.com/dvloznov/household-ledger/internal/store"
)

// Dispatcher is the part of ledger.Dispatcher a session needs.
type Dispatcher interface {
	Snapshot() store.Snapshot
	Dispatch(ctx context.Context, m ledger.Mutation) (store.Snapshot, error)
}

// Message senders.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// ActionState tracks a proposal through confirmation.
type ActionState string

const (
	ActionPending   ActionState = "pending"
	ActionConfirmed ActionState = "confirmed"
	ActionDiscarded ActionState = "discarded"
	ActionFailed    ActionState = "failed"
)

// Action is a translated proposal waiting for the user.
type Action struct {
	ID       string        `json:"id"`
	Kind     string        `json:"kind"`
	State    ActionState   `json:"state"`
	Proposal Proposal      `json:"proposal"`
	Preview  domain.Record `json:"preview"`

	mutation ledger.Mutation
}

// Message is one chat transcript entry.
type Message struct {
	Sender string    `json:"sender"`
	Text   string    `json:"text"`
	Action *Action   `json:"action,omitempty"`
	Time   time.Time `json:"time"`
}

const welcome = "Hello! I'm your assistant for managing finances. How can I help you today? " +
	"You can ask me to add or update transactions, for example: 'Add expense 50000 for coffee' or 'update my grocery bill to 300000'."

// Session is one ephemeral chat. Its transcript and pending actions live
// only in memory and are never persisted with the ledger.
type Session struct {
	mu       sync.Mutex
	model    Model
	ledger   Dispatcher
	matcher  Matcher
	now      func() time.Time
	log      zerolog.Logger
	messages []Message
	actions  map[string]*Action
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithMatcher replaces the default KeywordMatcher.
func WithMatcher(m Matcher) SessionOption {
	return func(s *Session) { s.matcher = m }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithLogger sets the session logger.
func WithLogger(log zerolog.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// NewSession starts a chat with a welcome message.
func NewSession(model Model, d Dispatcher, opts ...SessionOption) *Session {
	s := &Session{
		model:   model,
		ledger:  d,
		matcher: KeywordMatcher{Window: DefaultMatchWindow},
		now:     time.Now,
		log:     zerolog.Nop(),
		actions: make(map[string]*Action),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.messages = []Message{{Sender: SenderAI, Text: welcome, Time: s.now()}}
	return s
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	for i, m := range s.messages {
		if m.Action != nil {
			a := *m.Action
			m.Action = &a
		}
		out[i] = m
	}
	return out
}

// Send records the user's message and returns the assistant's reply. A
// proposal in the reply becomes a pending action; nothing is applied.
func (s *Session) Send(ctx context.Context, text string) (Message, error) {
	if text == "" {
		return Message{}, domain.NewValidationError("message", "required")
	}
	s.mu.Lock()
	s.messages = append(s.messages, Message{Sender: SenderUser, Text: text, Time: s.now()})
	s.mu.Unlock()

	snap := s.ledger.Snapshot()
	reply, err := s.model.Chat(ctx, text, snap.Categories, s.now())
	if err != nil {
		s.log.Error().Err(err).Msg("Chat request failed")
		s.append(Message{Sender: SenderAI, Text: "Sorry, I encountered an error: failed to get a response from the assistant."})
		return Message{}, domain.External("gemini", "chat", err)
	}
	if reply.Proposal == nil {
		return s.append(Message{Sender: SenderAI, Text: reply.Text}), nil
	}

	msg := Message{Sender: SenderAI}
	m, err := Translate(snap, reply.Proposal, s.matcher, s.now())
	switch {
	case err == nil:
		action := &Action{
			ID:       uuid.NewString(),
			Kind:     reply.Proposal.Kind(),
			State:    ActionPending,
			Proposal: reply.Proposal,
			mutation: m,
		}
		switch m := m.(type) {
		case ledger.AddTransaction:
			action.Preview = m.Transaction.Record()
			acc, _ := snap.Account(action.Preview.AccountID)
			msg.Text = fmt.Sprintf("I can help with that. Here is the transaction I've prepared (it will be assigned to your primary account: %s). Please review and confirm.", acc.Name)
		case ledger.UpdateTransaction:
			action.Preview = m.New.Record()
			msg.Text = fmt.Sprintf("I found a transaction matching %q. Please review the changes and confirm.", reply.Proposal.(UpdateProposal).Query)
		}
		msg.Action = action
		s.mu.Lock()
		s.actions[action.ID] = action
		s.mu.Unlock()
		s.log.Info().Str("action_id", action.ID).Str("kind", action.Kind).Msg("Proposal awaiting confirmation")
	case errors.Is(err, domain.ErrNotFound):
		if up, ok := reply.Proposal.(UpdateProposal); ok {
			msg.Text = fmt.Sprintf("Sorry, I couldn't find a recent transaction matching %q. Could you be more specific?", up.Query)
		} else {
			msg.Text = "Sorry, I couldn't prepare that: " + err.Error()
		}
	default:
		msg.Text = "Sorry, I couldn't prepare that: " + err.Error()
	}
	return s.append(msg), nil
}

func (s *Session) append(m Message) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.Time = s.now()
	if m.Action != nil {
		a := *m.Action
		m.Action = &a
	}
	s.messages = append(s.messages, m)
	return m
}

// errActionClosed reports an action that is no longer pending.
func errActionClosed(a *Action) error {
	return &domain.ValidationError{
		Field:   "action",
		Message: fmt.Sprintf("action %s is already %s", a.ID, a.State),
		Err:     domain.ErrStale,
	}
}

// Confirm applies a pending action through the ledger. An action can be
// confirmed at most once; a failed dispatch closes it too.
func (s *Session) Confirm(ctx context.Context, id string) (store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.actions[id]
	if !ok {
		return store.Snapshot{}, domain.NotFound("action", id)
	}
	if a.State != ActionPending {
		return store.Snapshot{}, errActionClosed(a)
	}

	snap, err := s.ledger.Dispatch(ctx, a.mutation)
	if err != nil {
		a.State = ActionFailed
		s.setActionState(id, ActionFailed)
		s.messages = append(s.messages, Message{Sender: SenderAI, Text: "That change could not be applied: " + err.Error(), Time: s.now()})
		return store.Snapshot{}, err
	}
	a.State = ActionConfirmed
	s.setActionState(id, ActionConfirmed)

	text := "Transaction added."
	if a.Kind == FuncUpdateTransaction {
		text = "Transaction updated."
	}
	s.messages = append(s.messages, Message{Sender: SenderAI, Text: text, Time: s.now()})
	s.log.Info().Str("action_id", id).Int64("revision", snap.Revision).Msg("Proposal confirmed")
	return snap, nil
}

// Discard drops a pending action.
func (s *Session) Discard(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.actions[id]
	if !ok {
		return domain.NotFound("action", id)
	}
	if a.State != ActionPending {
		return errActionClosed(a)
	}
	a.State = ActionDiscarded
	s.setActionState(id, ActionDiscarded)
	s.messages = append(s.messages, Message{Sender: SenderAI, Text: "Okay, I've cancelled that action.", Time: s.now()})
	return nil
}

// setActionState updates the transcript copy of an action. Callers hold mu.
func (s *Session) setActionState(id string, state ActionState) {
	for i := range s.messages {
		if a := s.messages[i].Action; a != nil && a.ID == id {
			a.State = state
		}
	}
}
