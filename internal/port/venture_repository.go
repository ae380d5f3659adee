package port

import (
	"context"

	"github.com/rl1809/ventures/internal/core/domain"
)

type VentureRepository interface {
	// CreatePitch persists a pitch and returns the stored row
	CreatePitch(ctx context.Context, pitch domain.Pitch) (*domain.Pitch, error)

	// CreateShipment persists a shipment; PostID must reference an existing post
	CreateShipment(ctx context.Context, shipment domain.Shipment) (*domain.Shipment, error)

	// ListPitches returns pitches with founder metadata, newest first
	ListPitches(ctx context.Context, filter domain.PitchFilter) ([]domain.PitchListing, error)

	// PitchExists reports whether a pitch with the given ID is stored
	PitchExists(ctx context.Context, pitchID string) (bool, error)

	// UpsertInterest inserts or overwrites the (pitch, investor) interest atomically
	UpsertInterest(ctx context.Context, interest domain.Interest) (*domain.Interest, error)
}

type Transactor interface {
	// WithinTx runs fn in a single store transaction. Repository calls made
	// with the ctx passed to fn join that transaction.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
