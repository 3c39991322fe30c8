// Package leads accepts submitted contact and meeting forms, advances the
// session's contact state and hands the lead to the external notifier over
// NATS. Email delivery itself lives outside this service.
package leads

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/quillhq/quill/engine/domain"
	"github.com/quillhq/quill/pkg/natsutil"
)

// NATS subjects consumed by the notifier.
const (
	ContactSubject = "leads.contact"
	MeetingSubject = "leads.meeting"
)

// Publisher delivers a lead to the notifier.
type Publisher interface {
	PublishContact(ctx context.Context, s domain.ContactSubmission) error
	PublishMeeting(ctx context.Context, s domain.MeetingSubmission) error
}

// SessionMarker advances a session's contact flow to its terminal state.
type SessionMarker interface {
	MarkContactSubmitted(id string)
}

// Service validates and forwards lead submissions.
type Service struct {
	publisher Publisher
	sessions  SessionMarker
	logger    *slog.Logger
}

// NewService creates a lead-capture service.
func NewService(publisher Publisher, sessions SessionMarker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{publisher: publisher, sessions: sessions, logger: logger}
}

// SubmitContact validates the submission, publishes it and marks the session
// so the contact form is never offered again.
func (s *Service) SubmitContact(ctx context.Context, sub domain.ContactSubmission) error {
	if err := domain.ValidateContact(sub); err != nil {
		return err
	}
	if err := s.publisher.PublishContact(ctx, sub); err != nil {
		return fmt.Errorf("leads: publish contact: %w", err)
	}
	if sub.SessionID != "" {
		s.sessions.MarkContactSubmitted(sub.SessionID)
	}
	s.logger.Info("contact lead accepted", "session", sub.SessionID)
	return nil
}

// SubmitMeeting validates and publishes a meeting request. Meeting requests
// do not change contact state; the meeting flow can always re-trigger.
func (s *Service) SubmitMeeting(ctx context.Context, sub domain.MeetingSubmission) error {
	if err := domain.ValidateMeeting(sub); err != nil {
		return err
	}
	if err := s.publisher.PublishMeeting(ctx, sub); err != nil {
		return fmt.Errorf("leads: publish meeting: %w", err)
	}
	s.logger.Info("meeting lead accepted", "session", sub.SessionID)
	return nil
}

// NATSPublisher publishes leads as typed JSON messages.
type NATSPublisher struct {
	nc *nats.Conn
}

// NewNATSPublisher wraps an established NATS connection.
func NewNATSPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

func (p *NATSPublisher) PublishContact(ctx context.Context, s domain.ContactSubmission) error {
	return natsutil.Publish(ctx, p.nc, ContactSubject, s)
}

func (p *NATSPublisher) PublishMeeting(ctx context.Context, s domain.MeetingSubmission) error {
	return natsutil.Publish(ctx, p.nc, MeetingSubject, s)
}
