// Package notify delivers engine notifications: an in-app notification row
// per recipient plus an optional outbound message request.
//
// Engine operations never deliver notifications themselves. They return the
// messages they want sent and the caller hands them to a Dispatcher.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yukikurage/taskflow/internal/models"
	"github.com/yukikurage/taskflow/internal/repository"
	"gorm.io/datatypes"
)

// Notification type tags
const (
	TypeTaskAssigned        = "task_assigned"
	TypeTaskDelegated       = "task_delegated"
	TypeDelegationCompleted = "delegation_completed"
	TypeDelegationVerified  = "delegation_verified"
	TypeDelegationRejected  = "delegation_rejected"
)

// Message is one pending notification for one recipient.
type Message struct {
	RecipientID uuid.UUID
	Type        string
	Title       string
	Body        string
	ReferenceID *uuid.UUID
	Metadata    map[string]any
	// SendEmail requests an outbound message in addition to the in-app row.
	SendEmail bool
}

// Sink accepts a single message for delivery.
type Sink interface {
	Notify(ctx context.Context, msg Message) error
}

// Mailer hands outbound message requests to the mail pipeline.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// StoreSink writes notification rows and forwards email requests to a Mailer.
type StoreSink struct {
	repo   repository.NotificationRepository
	mailer Mailer
}

// NewStoreSink creates a StoreSink. mailer may be nil.
func NewStoreSink(repo repository.NotificationRepository, mailer Mailer) *StoreSink {
	return &StoreSink{
		repo:   repo,
		mailer: mailer,
	}
}

// Notify stores the in-app notification, then requests the outbound message.
func (s *StoreSink) Notify(ctx context.Context, msg Message) error {
	notification := &models.Notification{
		UserID:      msg.RecipientID,
		Type:        msg.Type,
		Title:       msg.Title,
		Message:     msg.Body,
		ReferenceID: msg.ReferenceID,
		Metadata:    datatypes.JSONMap(msg.Metadata),
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	if msg.SendEmail && s.mailer != nil {
		if err := s.mailer.Send(ctx, msg); err != nil {
			return fmt.Errorf("failed to request outbound message: %w", err)
		}
	}
	return nil
}

// LogMailer records outbound message requests in the log.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	log.Info().
		Str("recipient", msg.RecipientID.String()).
		Str("type", msg.Type).
		Str("title", msg.Title).
		Msg("outbound message requested")
	return nil
}

// Dispatcher delivers batches of messages on a best-effort basis.
type Dispatcher struct {
	sink Sink
}

// NewDispatcher creates a Dispatcher over sink.
func NewDispatcher(sink Sink) *Dispatcher {
	return &Dispatcher{sink: sink}
}

// DispatchAll delivers every message and returns how many failed. Failures
// are logged and never abort the batch.
func (d *Dispatcher) DispatchAll(ctx context.Context, msgs []Message) int {
	failed := 0
	for _, msg := range msgs {
		if err := d.sink.Notify(ctx, msg); err != nil {
			failed++
			log.Warn().Err(err).
				Str("recipient", msg.RecipientID.String()).
				Str("type", msg.Type).
				Msg("notification delivery failed")
		}
	}
	return failed
}
