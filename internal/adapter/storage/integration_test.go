package storage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rl1809/ventures/internal/core/domain"
	"github.com/rl1809/ventures/internal/core/service"
)

type failingPosts struct{}

func (failingPosts) CreatePost(ctx context.Context, post domain.Post) (*domain.Post, error) {
	return nil, errors.New("post service down")
}

func TestIntegration_PitchAnnouncement(t *testing.T) {
	env := getSQLiteEnv(t)
	svc := service.NewVentureService(env.store, env.store, service.WithTransactor(env.store))
	founder := env.seedAgent(t, "founder", nil)

	pitch, err := svc.CreatePitch(context.Background(), service.PitchInput{
		FounderID: founder,
		Title:     "Acme",
		Vision:    "Build widgets",
	})
	if err != nil {
		t.Fatalf("CreatePitch failed: %v", err)
	}

	if pitch.Status != domain.PitchStatusActive || string(pitch.Traction) != "{}" {
		t.Errorf("unexpected pitch: %+v", pitch)
	}
	n := env.count(`SELECT COUNT(*) FROM posts WHERE submolt = 'ventures' AND title = ?`, "🚀 NEW PITCH: Acme")
	if n != 1 {
		t.Errorf("expected 1 announcement post, got %d", n)
	}
}

func TestIntegration_PitchSurvivesPostFailure(t *testing.T) {
	env := getSQLiteEnv(t)
	svc := service.NewVentureService(env.store, failingPosts{})
	founder := env.seedAgent(t, "founder", nil)

	if _, err := svc.CreatePitch(context.Background(), service.PitchInput{
		FounderID: founder, Title: "Acme", Vision: "Build widgets",
	}); err != nil {
		t.Fatalf("expected pitch to succeed, got: %v", err)
	}
	if n := env.count(`SELECT COUNT(*) FROM pitches WHERE founder_id = ?`, founder); n != 1 {
		t.Errorf("expected 1 pitch, got %d", n)
	}
}

func TestIntegration_ShipmentPostFirst(t *testing.T) {
	env := getSQLiteEnv(t)
	svc := service.NewVentureService(env.store, env.store, service.WithTransactor(env.store))
	founder := env.seedAgent(t, "founder", nil)

	shipment, err := svc.CreateShipment(context.Background(), service.ShipmentInput{
		FounderID:   founder,
		RepoURL:     "http://x",
		CommitHash:  "abc123",
		Description: "fix bug",
		VerifiedBy:  founder,
	})
	if err != nil {
		t.Fatalf("CreateShipment failed: %v", err)
	}

	n := env.count(`SELECT COUNT(*) FROM posts WHERE id = ? AND title = ?`, shipment.PostID, "🛠️ VERIFIED SHIPMENT: fix bug")
	if n != 1 {
		t.Errorf("expected shipment to reference its post, got %d", n)
	}
}

func TestIntegration_ShipmentPostFailure(t *testing.T) {
	env := getSQLiteEnv(t)
	svc := service.NewVentureService(env.store, failingPosts{}, service.WithTransactor(env.store))
	founder := env.seedAgent(t, "founder", nil)

	_, err := svc.CreateShipment(context.Background(), service.ShipmentInput{
		FounderID: founder, RepoURL: "http://x", CommitHash: "abc123", Description: "fix bug",
	})
	if err == nil {
		t.Fatal("expected error when post creation fails")
	}
	if n := env.count(`SELECT COUNT(*) FROM shipments`); n != 0 {
		t.Errorf("expected no shipments, got %d", n)
	}
}

func TestIntegration_InterestUpsert(t *testing.T) {
	env := getSQLiteEnv(t)
	svc := service.NewVentureService(env.store, env.store)
	founder := env.seedAgent(t, "founder", nil)
	investor := env.seedAgent(t, "investor", nil)
	ctx := context.Background()

	pitch, err := svc.CreatePitch(ctx, service.PitchInput{FounderID: founder, Title: "P", Vision: "v"})
	if err != nil {
		t.Fatalf("CreatePitch failed: %v", err)
	}

	for _, amount := range []float64{100, 200} {
		a := amount
		if _, err := svc.ExpressInterest(ctx, service.InterestInput{
			PitchID: pitch.ID, InvestorID: investor, Amount: &a,
		}); err != nil {
			t.Fatalf("ExpressInterest(%v) failed: %v", amount, err)
		}
	}

	if n := env.count(`SELECT COUNT(*) FROM venture_interests WHERE pitch_id = ?`, pitch.ID); n != 1 {
		t.Errorf("expected exactly 1 row, got %d", n)
	}
	if n := env.count(`SELECT COUNT(*) FROM venture_interests WHERE pitch_id = ? AND amount = 200`, pitch.ID); n != 1 {
		t.Error("expected stored amount to be 200")
	}
}

func TestIntegration_InterestConcurrent(t *testing.T) {
	env := getSQLiteEnv(t)
	svc := service.NewVentureService(env.store, env.store)
	founder := env.seedAgent(t, "founder", nil)
	investor := env.seedAgent(t, "investor", nil)
	ctx := context.Background()

	pitch, err := svc.CreatePitch(ctx, service.PitchInput{FounderID: founder, Title: "P", Vision: "v"})
	if err != nil {
		t.Fatalf("CreatePitch failed: %v", err)
	}

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			a := float64(n)
			if _, err := svc.ExpressInterest(ctx, service.InterestInput{
				PitchID: pitch.ID, InvestorID: investor, Amount: &a,
			}); err == nil {
				successCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if successCount.Load() != 20 {
		t.Errorf("expected 20 successes, got %d", successCount.Load())
	}
	if n := env.count(`SELECT COUNT(*) FROM venture_interests WHERE pitch_id = ?`, pitch.ID); n != 1 {
		t.Errorf("expected exactly 1 row, got %d", n)
	}
}
