package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"promotions-service/internal/database"
	"promotions-service/internal/events"
	"promotions-service/internal/metrics"
	"promotions-service/internal/models"
	"promotions-service/internal/tracing"
	"promotions-service/internal/validation"
)

// Service provides the promotion use cases on top of the store.
type Service struct {
	db      *database.DB
	tracer  trace.Tracer
	metrics *metrics.Metrics
	events  *events.Manager
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records every store operation in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithEvents publishes lifecycle events to m after each committed mutation.
func WithEvents(m *events.Manager) Option {
	return func(s *Service) { s.events = m }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// NewService creates a new service instance.
func NewService(db *database.DB, opts ...Option) *Service {
	s := &Service{db: db, tracer: tracing.Tracer()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePromotion validates p and stores it as a new row, setting p.ID.
func (s *Service) CreatePromotion(ctx context.Context, p *models.Promotion) (err error) {
	ctx, span := s.tracer.Start(ctx, "service.CreatePromotion")
	defer s.finish(span, "create", time.Now(), &err)

	validation.SanitizePromotion(p)
	if err := validation.ValidatePromotion(*p); err != nil {
		return err
	}

	if err := s.db.CreatePromotion(ctx, p); err != nil {
		return err
	}

	span.SetAttributes(attribute.Int64("promotion.id", p.ID))
	zerolog.Ctx(ctx).Info().Int64("promotion_id", p.ID).Str("promo_code", p.PromoCode).Msg("promotion created")
	s.events.PublishCreated(ctx, *p)
	return nil
}

// UpdatePromotion writes p over its stored row. A promotion without an ID is
// rejected before anything else happens.
func (s *Service) UpdatePromotion(ctx context.Context, p *models.Promotion) (err error) {
	ctx, span := s.tracer.Start(ctx, "service.UpdatePromotion",
		trace.WithAttributes(attribute.Int64("promotion.id", p.ID)))
	defer s.finish(span, "update", time.Now(), &err)

	if p.ID == 0 {
		return models.NoIDError()
	}

	validation.SanitizePromotion(p)
	if err := validation.ValidatePromotion(*p); err != nil {
		return err
	}

	if err := s.db.UpdatePromotion(ctx, p); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().Int64("promotion_id", p.ID).Msg("promotion updated")
	s.events.PublishUpdated(ctx, *p)
	return nil
}

// DeletePromotion removes the promotion with the given ID, if any.
func (s *Service) DeletePromotion(ctx context.Context, id int64) (err error) {
	ctx, span := s.tracer.Start(ctx, "service.DeletePromotion",
		trace.WithAttributes(attribute.Int64("promotion.id", id)))
	defer s.finish(span, "delete", time.Now(), &err)

	if err := s.db.DeletePromotion(ctx, id); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().Int64("promotion_id", id).Msg("promotion deleted")
	s.events.PublishDeleted(ctx, id)
	return nil
}

// GetPromotion returns the promotion with the given ID, or nil when absent.
func (s *Service) GetPromotion(ctx context.Context, id int64) (p *models.Promotion, err error) {
	ctx, span := s.tracer.Start(ctx, "service.GetPromotion",
		trace.WithAttributes(attribute.Int64("promotion.id", id)))
	defer s.finish(span, "find", time.Now(), &err)

	p, err = s.db.FindPromotion(ctx, id)
	span.SetAttributes(attribute.Bool("promotion.found", p != nil))
	return p, err
}

// ListPromotions returns every promotion.
func (s *Service) ListPromotions(ctx context.Context) (promotions []models.Promotion, err error) {
	ctx, span := s.tracer.Start(ctx, "service.ListPromotions")
	defer s.finish(span, "all", time.Now(), &err)

	promotions, err = s.db.AllPromotions(ctx)
	span.SetAttributes(attribute.Int("promotion.count", len(promotions)))
	return promotions, err
}

// FindPromotions returns the promotions matching every field in params.
// Without params it behaves like ListPromotions.
func (s *Service) FindPromotions(ctx context.Context, params map[string]string) (promotions []models.Promotion, err error) {
	if len(params) == 0 {
		return s.ListPromotions(ctx)
	}

	ctx, span := s.tracer.Start(ctx, "service.FindPromotions",
		trace.WithAttributes(attribute.Int("query.fields", len(params))))
	defer s.finish(span, "find_by_fields", time.Now(), &err)

	promotions, err = s.db.FindPromotionsByFields(ctx, params)
	span.SetAttributes(attribute.Int("promotion.count", len(promotions)))
	return promotions, err
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Service) finish(span trace.Span, operation string, started time.Time, errp *error) {
	err := *errp
	s.metrics.Observe(operation, started, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
