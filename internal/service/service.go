// Package service implements the event lifecycle, the registration engine
// and the notification inbox on top of the storage interfaces. Business
// rules live here; handlers only translate HTTP to these calls and errors
// back to status codes.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/telemetry"
)

const tracerName = "github.com/Shivanand-hulikatti/campus-events/internal/service"

// base carries the collaborators every service needs.
type base struct {
	notifier Notifier
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func newBase(notifier Notifier, logger zerolog.Logger) base {
	return base{
		notifier: notifier,
		logger:   logger,
		tracer:   telemetry.Tracer(tracerName),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (b *base) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return b.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// finish ends span, marking it failed for unexpected errors only.
func finish(span trace.Span, err error) {
	if err != nil && !isBusinessError(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func isBusinessError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrAlreadyRegistered) ||
		errors.Is(err, ErrHasRegistrations)
}

// notify hands n to the notifier. It runs after the state change has
// committed and cannot fail the caller.
func (b *base) notify(ctx context.Context, n model.Notification) {
	if b.notifier == nil {
		return
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = b.now()
	}
	b.notifier.Enqueue(ctx, n)
}

func newCheckInCode() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate check-in code: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
