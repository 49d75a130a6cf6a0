package sale

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/counter-pos/internal/domain/catalog"
)

// Session owns the cart of one sale being composed at the counter. Edits and
// calculations are serialized; at most one submission is in flight.
type Session struct {
	id      uuid.UUID
	catalog catalog.Source
	gateway Gateway
	tracer  trace.Tracer

	mu         sync.Mutex
	cart       *Cart
	closed     bool
	submitting bool
	lastUsed   time.Time
}

func newSession(src catalog.Source, gw Gateway, tracer trace.Tracer) *Session {
	return &Session{
		id:       uuid.New(),
		catalog:  src,
		gateway:  gw,
		tracer:   tracer,
		cart:     NewCart(),
		lastUsed: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Edit applies fn to the cart. Edits are refused while a submission is in
// flight so the outcome always refers to the cart the operator sees.
func (s *Session) Edit(fn func(c *Cart) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.submitting {
		return ErrSubmitInProgress
	}
	s.lastUsed = time.Now()
	return fn(s.cart)
}

// Cart returns a copy of the current cart.
func (s *Session) Cart() (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.cart.Clone(), nil
}

// Preview prices the current cart against a freshly fetched snapshot.
func (s *Session) Preview(ctx context.Context) (Quote, error) {
	_, q, err := s.View(ctx)
	return q, err
}

// View returns a copy of the cart together with its quote, both taken under
// the same lock so they always describe the same lines.
func (s *Session) View(ctx context.Context) (*Cart, Quote, error) {
	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, Quote{}, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, Quote{}, ErrSessionClosed
	}
	s.lastUsed = time.Now()
	return s.cart.Clone(), Calculate(snap, s.cart), nil
}

// Submit assembles the cart against a fresh snapshot and hands it to the
// gateway. On success the cart is replaced with a fresh one; on any failure
// it is left untouched.
func (s *Session) Submit(ctx context.Context) (*Receipt, error) {
	cart, err := s.beginSubmit()
	if err != nil {
		return nil, err
	}
	defer s.endSubmit()

	ctx, span := s.tracer.Start(ctx, "sale.Submit",
		trace.WithAttributes(attribute.String("session.id", s.id.String())),
	)
	defer span.End()

	receipt, err := s.submit(ctx, cart)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("sale.reference", receipt.Reference.String()),
		attribute.String("sale.id", receipt.SaleID),
	)
	return receipt, nil
}

// beginSubmit marks the session as submitting and returns the cart to send.
// Both happen under one lock so no edit can land between them.
func (s *Session) beginSubmit() (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.submitting {
		return nil, ErrSubmitInProgress
	}
	s.submitting = true
	s.lastUsed = time.Now()
	return s.cart.Clone(), nil
}

func (s *Session) endSubmit() {
	s.mu.Lock()
	s.submitting = false
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *Session) submit(ctx context.Context, cart *Cart) (*Receipt, error) {
	lg := zctx.From(ctx)

	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	o, err := Assemble(snap, cart, uuid.New())
	if err != nil {
		return nil, err
	}

	receipt, err := s.gateway.Submit(ctx, o)
	if err != nil {
		lg.Warn("Sale not accepted",
			zap.Stringer("reference", o.Reference),
			zap.Error(err),
		)
		return nil, errors.Wrap(err, "submit order")
	}
	receipt.Total = o.Total()

	s.mu.Lock()
	if !s.closed {
		s.cart = NewCart()
	}
	s.mu.Unlock()

	lg.Info("Sale accepted",
		zap.Stringer("reference", receipt.Reference),
		zap.String("sale_id", receipt.SaleID),
		zap.Stringer("total", receipt.Total),
	)
	return receipt, nil
}

// idle reports whether the session has not been used since before cutoff.
// A submission in flight keeps the session alive.
func (s *Session) idle(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.submitting && s.lastUsed.Before(cutoff)
}

// Cancel discards the cart. Later calls fail with ErrSessionClosed.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.cart = nil
}
