package services

import (
	"context"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/session"
)

// Routing keys on the topic exchange
const (
	EventSessionLogin       = "session.login"
	EventSessionRegister    = "session.register"
	EventSessionLogout      = "session.logout"
	EventSessionExpired     = "session.expired"
	EventTransactionCreated = "transaction.created"
	EventTransactionDeleted = "transaction.deleted"
)

// Publisher is the subset of *amqp.Client used to emit events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

type SessionEvent struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Cause string `json:"cause"`
}

type TransactionEvent struct {
	TransactionID int64  `json:"transaction_id"`
	Title         string `json:"title,omitempty"`
	Amount        string `json:"amount,omitempty"`
	Type          string `json:"type,omitempty"`
	Category      string `json:"category,omitempty"`
	Date          string `json:"date,omitempty"`
}

// EventService publishes session transitions and accepted mutations.
// Publishing is best effort: failures are logged and never reach the user.
// A nil service or nil publisher turns every call into a no-op.
type EventService struct {
	publisher Publisher
	timeout   time.Duration
}

func NewEventService(publisher Publisher) *EventService {
	return &EventService{publisher: publisher, timeout: 5 * time.Second}
}

// SessionChanged is meant for session.Service.Subscribe. Rehydration is not
// a user action and is not published.
func (s *EventService) SessionChanged(tr session.Transition) {
	var key string
	switch tr.Cause {
	case session.CauseLogin:
		key = EventSessionLogin
	case session.CauseRegister:
		key = EventSessionRegister
	case session.CauseLogout:
		key = EventSessionLogout
	case session.CauseExpired:
		key = EventSessionExpired
	default:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeoutOrDefault())
	defer cancel()
	s.publish(ctx, key, SessionEvent{
		From:  tr.From.String(),
		To:    tr.To.String(),
		Cause: string(tr.Cause),
	})
}

func (s *EventService) TransactionCreated(ctx context.Context, tx core.Transaction) {
	s.publish(context.WithoutCancel(ctx), EventTransactionCreated, TransactionEvent{
		TransactionID: tx.ID,
		Title:         tx.Title,
		Amount:        tx.Amount.StringFixed(2),
		Type:          string(tx.Type),
		Category:      tx.Category,
		Date:          tx.Date.ISO(),
	})
}

func (s *EventService) TransactionDeleted(ctx context.Context, id int64) {
	s.publish(context.WithoutCancel(ctx), EventTransactionDeleted, TransactionEvent{TransactionID: id})
}

func (s *EventService) publish(ctx context.Context, key string, data any) {
	if s == nil || s.publisher == nil {
		return
	}

	env, err := amqp.NewEnvelope(key, data)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build event", "event", key, "error", err)
		return
	}
	body, err := env.ToJSON()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to marshal event", "event", key, "error", err)
		return
	}

	if err := s.publisher.Publish(ctx, key, body); err != nil {
		fields := applog.NewFields().
			WithComponent(applog.ComponentAMQP).
			WithOperation(applog.OpPublish).
			WithError(err)
		slog.WarnContext(ctx, "Failed to publish event", append(fields.ToSlice(), "event", key)...)
	}
}

func (s *EventService) timeoutOrDefault() time.Duration {
	if s == nil || s.timeout <= 0 {
		return 5 * time.Second
	}
	return s.timeout
}
