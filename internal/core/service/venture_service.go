package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/ventures/internal/core/domain"
	"github.com/rl1809/ventures/internal/platform/logger"
	"github.com/rl1809/ventures/internal/platform/metrics"
	"github.com/rl1809/ventures/internal/port"
)

const (
	DefaultSubmolt   = "ventures"
	DefaultPageLimit = 20
)

const tracerName = "github.com/rl1809/ventures/internal/core/service"

type PitchInput struct {
	FounderID  string
	Title      string
	Vision     string
	Traction   json.RawMessage
	FundingAsk *float64
}

type ShipmentInput struct {
	FounderID   string
	RepoURL     string
	CommitHash  string
	Description string
	// VerifiedBy is the identity vouching for the build. Empty means the
	// founder verifies their own shipment.
	VerifiedBy  string
	ImpactScore *int
}

type InterestInput struct {
	PitchID    string
	InvestorID string
	Amount     *float64
	Message    string
}

type VentureService struct {
	ventures port.VentureRepository
	tx       port.Transactor
	announce bestEffortPost
	publish  requiredPost
	submolt  string
	log      *logger.Logger
	metrics  *metrics.Manager
}

type Option func(*VentureService)

func WithLogger(log *logger.Logger) Option {
	return func(s *VentureService) {
		if log != nil {
			s.log = log
		}
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(s *VentureService) {
		s.metrics = m
	}
}

// WithSubmolt sets the feed announcements are posted to.
func WithSubmolt(submolt string) Option {
	return func(s *VentureService) {
		if submolt != "" {
			s.submolt = submolt
		}
	}
}

// WithTransactor makes CreateShipment write the post and the shipment in one
// transaction.
func WithTransactor(tx port.Transactor) Option {
	return func(s *VentureService) {
		s.tx = tx
	}
}

func NewVentureService(ventures port.VentureRepository, posts port.PostRepository, opts ...Option) *VentureService {
	s := &VentureService{
		ventures: ventures,
		submolt:  DefaultSubmolt,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "VentureService")
	s.announce = bestEffortPost{posts: posts, log: s.log, metrics: s.metrics}
	s.publish = requiredPost{posts: posts, metrics: s.metrics}
	return s
}

func (s *VentureService) CreatePitch(ctx context.Context, in PitchInput) (_ *domain.Pitch, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "VentureService.CreatePitch",
		trace.WithAttributes(attribute.String("founder_id", in.FounderID)))
	defer func() { endSpan(span, err) }()

	if isBlank(in.Title) || isBlank(in.Vision) {
		return nil, domain.ValidationError("title and vision are required for a pitch")
	}

	traction := domain.NormalizeTraction(in.Traction)
	if !json.Valid(traction) {
		return nil, domain.ValidationError("traction must be valid JSON")
	}

	pitch, err := s.ventures.CreatePitch(ctx, domain.Pitch{
		FounderID:  in.FounderID,
		Title:      in.Title,
		Vision:     in.Vision,
		Traction:   traction,
		FundingAsk: in.FundingAsk,
		Status:     domain.PitchStatusActive,
	})
	if err != nil {
		return nil, fmt.Errorf("create pitch: %w", err)
	}
	s.metrics.IncPitchesCreated()

	s.announce.Publish(ctx, pitchAnnouncement(s.submolt, *pitch))

	return pitch, nil
}

func (s *VentureService) CreateShipment(ctx context.Context, in ShipmentInput) (_ *domain.Shipment, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "VentureService.CreateShipment",
		trace.WithAttributes(attribute.String("founder_id", in.FounderID)))
	defer func() { endSpan(span, err) }()

	if isBlank(in.RepoURL) || isBlank(in.CommitHash) {
		return nil, domain.ValidationError("repo URL and commit hash are required for shipment verification")
	}

	verifiedBy := in.VerifiedBy
	if verifiedBy == "" {
		verifiedBy = in.FounderID
	}
	if verifiedBy == in.FounderID {
		s.log.Debug("shipment is self-verified", "founder_id", in.FounderID)
	}

	shipment := domain.Shipment{
		FounderID:   in.FounderID,
		RepoURL:     in.RepoURL,
		CommitHash:  in.CommitHash,
		Description: in.Description,
		VerifiedBy:  verifiedBy,
		ImpactScore: in.ImpactScore,
	}

	var created *domain.Shipment
	err = s.withinTx(ctx, func(ctx context.Context) error {
		post, err := s.publish.Publish(ctx, shipmentAnnouncement(s.submolt, shipment))
		if err != nil {
			return err
		}
		shipment.PostID = post.ID

		created, err = s.ventures.CreateShipment(ctx, shipment)
		if err != nil {
			return fmt.Errorf("create shipment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncShipmentsCreated()

	return created, nil
}

func (s *VentureService) ListPitches(ctx context.Context, filter domain.PitchFilter) (_ []domain.PitchListing, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "VentureService.ListPitches")
	defer func() { endSpan(span, err) }()

	if filter.Status == "" {
		filter.Status = domain.PitchStatusActive
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultPageLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	pitches, err := s.ventures.ListPitches(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list pitches: %w", err)
	}
	if pitches == nil {
		pitches = []domain.PitchListing{}
	}
	return pitches, nil
}

func (s *VentureService) ExpressInterest(ctx context.Context, in InterestInput) (_ *domain.Interest, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "VentureService.ExpressInterest",
		trace.WithAttributes(attribute.String("pitch_id", in.PitchID)))
	defer func() { endSpan(span, err) }()

	if isBlank(in.PitchID) {
		return nil, domain.ValidationError("pitchId is required")
	}
	// IDs are UUIDs; anything else cannot reference a stored pitch.
	if _, err := uuid.Parse(in.PitchID); err != nil {
		return nil, domain.NotFoundError("pitch")
	}

	ok, err := s.ventures.PitchExists(ctx, in.PitchID)
	if err != nil {
		return nil, fmt.Errorf("lookup pitch: %w", err)
	}
	if !ok {
		return nil, domain.NotFoundError("pitch")
	}

	interest, err := s.ventures.UpsertInterest(ctx, domain.Interest{
		PitchID:    in.PitchID,
		InvestorID: in.InvestorID,
		Amount:     in.Amount,
		Message:    in.Message,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert interest: %w", err)
	}
	s.metrics.IncInterestsUpserted()

	return interest, nil
}

func (s *VentureService) withinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.WithinTx(ctx, fn)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
