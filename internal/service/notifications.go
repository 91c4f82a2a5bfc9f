package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

const (
	defaultInboxLimit = 50
	maxInboxLimit     = 100
)

// InboxService exposes a recipient's notifications.
type InboxService struct {
	store  InboxStore
	logger zerolog.Logger
}

func NewInboxService(store InboxStore, logger zerolog.Logger) *InboxService {
	return &InboxService{store: store, logger: logger}
}

// List returns the caller's newest notifications. limit defaults to 50 and
// is capped at 100.
func (s *InboxService) List(ctx context.Context, actor model.Actor, limit int) ([]model.Notification, error) {
	if actor.UserID == "" {
		return nil, ErrForbidden
	}
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	limit = min(limit, maxInboxLimit)

	out, err := s.store.ListByRecipient(ctx, actor.UserID, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Notification{}
	}
	return out, nil
}

// MarkRead marks one of the caller's notifications read. Other recipients'
// notifications are reported as ErrNotFound.
func (s *InboxService) MarkRead(ctx context.Context, actor model.Actor, id string) (*model.Notification, error) {
	if actor.UserID == "" {
		return nil, ErrForbidden
	}
	return s.store.MarkRead(ctx, id, actor.UserID)
}

// MarkAllRead marks every unread notification of the caller read and
// returns how many changed.
func (s *InboxService) MarkAllRead(ctx context.Context, actor model.Actor) (int64, error) {
	if actor.UserID == "" {
		return 0, ErrForbidden
	}
	n, err := s.store.MarkAllRead(ctx, actor.UserID)
	if err != nil {
		return 0, err
	}
	s.logger.Debug().Str("recipient_id", actor.UserID).Int64("count", n).Msg("notifications marked read")
	return n, nil
}

// Delete removes one of the caller's notifications.
func (s *InboxService) Delete(ctx context.Context, actor model.Actor, id string) error {
	if actor.UserID == "" {
		return ErrForbidden
	}
	return s.store.Delete(ctx, id, actor.UserID)
}
