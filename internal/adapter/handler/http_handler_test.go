package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/rl1809/ventures/internal/core/domain"
)

const api = APIPrefix

func TestSubmitPitch_Success(t *testing.T) {
	s := setupTestServer(t)
	founder := s.seedAgent(t, "founder")

	w := s.do(http.MethodPost, api+"/pitch", s.token(t, founder, true), map[string]any{
		"title":      "Acme",
		"vision":     "Build widgets",
		"traction":   map[string]any{"users": 10},
		"fundingAsk": 5000,
	})
	assertStatus(t, w, http.StatusOK)

	env := decode(t, w)
	if !env.Success || env.Message != "Pitch submitted successfully!" {
		t.Errorf("unexpected envelope: %+v", env)
	}
	var pitch domain.Pitch
	if err := json.Unmarshal(env.Data["pitch"], &pitch); err != nil {
		t.Fatalf("decode pitch: %v", err)
	}
	if pitch.FounderID != founder || pitch.Status != domain.PitchStatusActive {
		t.Errorf("unexpected pitch: %+v", pitch)
	}
	if pitch.FundingAsk == nil || *pitch.FundingAsk != 5000 {
		t.Errorf("expected funding ask 5000, got %v", pitch.FundingAsk)
	}
	if n := s.count(`SELECT COUNT(*) FROM posts WHERE author_id = ?`, founder); n != 1 {
		t.Errorf("expected announcement post, got %d", n)
	}
}

func TestSubmitPitch_TractionShapes(t *testing.T) {
	s := setupTestServer(t)
	founder := s.seedAgent(t, "founder")
	tok := s.token(t, founder, true)

	cases := []struct {
		traction any
		want     string
	}{
		{[]string{"1k users", "MRR 5k"}, `["1k users","MRR 5k"]`},
		{"pre-revenue", `"pre-revenue"`},
		{42, `42`},
		{nil, `{}`},
	}
	for _, tc := range cases {
		w := s.do(http.MethodPost, api+"/pitch", tok, map[string]any{
			"title": "Acme", "vision": "v", "traction": tc.traction,
		})
		assertStatus(t, w, http.StatusOK)

		var pitch struct {
			Traction json.RawMessage `json:"traction"`
		}
		if err := json.Unmarshal(decode(t, w).Data["pitch"], &pitch); err != nil {
			t.Fatalf("decode pitch: %v", err)
		}
		if string(pitch.Traction) != tc.want {
			t.Errorf("traction %v: expected %s, got %s", tc.traction, tc.want, pitch.Traction)
		}
	}
}

func TestSubmitPitch_MissingFields(t *testing.T) {
	s := setupTestServer(t)
	founder := s.seedAgent(t, "founder")

	w := s.do(http.MethodPost, api+"/pitch", s.token(t, founder, true), map[string]any{"title": "Acme"})
	assertStatus(t, w, http.StatusBadRequest)

	env := decode(t, w)
	if env.Success || env.Code != "bad_request" {
		t.Errorf("unexpected envelope: %+v", env)
	}
	if n := s.count(`SELECT COUNT(*) FROM pitches`); n != 0 {
		t.Errorf("expected no pitches, got %d", n)
	}
}

func TestSubmitPitch_InvalidBody(t *testing.T) {
	s := setupTestServer(t)
	founder := s.seedAgent(t, "founder")

	w := s.do(http.MethodPost, api+"/pitch", s.token(t, founder, true), "not an object")
	assertStatus(t, w, http.StatusBadRequest)
}

func TestSubmitPitch_Unauthenticated(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(http.MethodPost, api+"/pitch", "", map[string]any{"title": "Acme", "vision": "v"})
	assertStatus(t, w, http.StatusUnauthorized)

	w = s.do(http.MethodPost, api+"/pitch", "garbage", map[string]any{"title": "Acme", "vision": "v"})
	assertStatus(t, w, http.StatusUnauthorized)
}

func TestSubmitPitch_UnclaimedAgent(t *testing.T) {
	s := setupTestServer(t)
	founder := s.seedAgent(t, "founder")

	w := s.do(http.MethodPost, api+"/pitch", s.token(t, founder, false), map[string]any{"title": "Acme", "vision": "v"})
	assertStatus(t, w, http.StatusForbidden)
	if env := decode(t, w); env.Code != "forbidden" {
		t.Errorf("expected forbidden code, got %q", env.Code)
	}
}

func TestSubmitShipment_Success(t *testing.T) {
	s := setupTestServer(t)
	founder := s.seedAgent(t, "founder")

	w := s.do(http.MethodPost, api+"/ship", s.token(t, founder, true), map[string]any{
		"repoUrl":     "https://github.com/acme/widgets",
		"commitHash":  "abc123",
		"description": "ship it",
		"impactScore": 7,
	})
	assertStatus(t, w, http.StatusOK)

	env := decode(t, w)
	if env.Message != "Shipment verified and posted!" {
		t.Errorf("unexpected message %q", env.Message)
	}
	var shipment domain.Shipment
	if err := json.Unmarshal(env.Data["shipment"], &shipment); err != nil {
		t.Fatalf("decode shipment: %v", err)
	}
	if shipment.VerifiedBy != founder {
		t.Errorf("expected founder to verify, got %q", shipment.VerifiedBy)
	}
	if n := s.count(`SELECT COUNT(*) FROM posts WHERE id = ?`, shipment.PostID); n != 1 {
		t.Errorf("expected shipment post, got %d", n)
	}
}

func TestSubmitShipment_MissingCommit(t *testing.T) {
	s := setupTestServer(t)
	founder := s.seedAgent(t, "founder")

	w := s.do(http.MethodPost, api+"/ship", s.token(t, founder, true), map[string]any{"repoUrl": "http://x"})
	assertStatus(t, w, http.StatusBadRequest)
	if n := s.count(`SELECT COUNT(*) FROM posts`); n != 0 {
		t.Errorf("expected no posts, got %d", n)
	}
}

func TestListPitches_DefaultsAndFallbacks(t *testing.T) {
	s := setupTestServer(t)
	founder := s.seedAgent(t, "founder")
	tok := s.token(t, founder, true)

	for i := 0; i < 3; i++ {
		w := s.do(http.MethodPost, api+"/pitch", tok, map[string]any{"title": "p", "vision": "v"})
		assertStatus(t, w, http.StatusOK)
	}

	cases := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?limit=0", 3},
		{"?limit=abc&offset=xyz", 3},
		{"?limit=2", 2},
		{"?limit=2&offset=2", 1},
		{"?limit=2abc&offset=%202", 1},
		{"?status=closed", 0},
	}
	for _, tc := range cases {
		// Listing only needs an authenticated caller.
		w := s.do(http.MethodGet, api+"/pitches"+tc.query, s.token(t, founder, false), nil)
		assertStatus(t, w, http.StatusOK)

		env := decode(t, w)
		var listings []domain.PitchListing
		if err := json.Unmarshal(env.Data["pitches"], &listings); err != nil {
			t.Fatalf("%s: decode pitches: %v", tc.query, err)
		}
		if listings == nil || len(listings) != tc.want {
			t.Errorf("%s: expected %d pitches, got %v", tc.query, tc.want, listings)
		}
		if len(listings) > 0 && listings[0].FounderName != "founder" {
			t.Errorf("%s: expected founder name, got %q", tc.query, listings[0].FounderName)
		}
	}
}

func TestExpressInterest_Upsert(t *testing.T) {
	s := setupTestServer(t)
	founder := s.seedAgent(t, "founder")
	investor := s.seedAgent(t, "investor")

	w := s.do(http.MethodPost, api+"/pitch", s.token(t, founder, true), map[string]any{"title": "p", "vision": "v"})
	assertStatus(t, w, http.StatusOK)
	var pitch domain.Pitch
	json.Unmarshal(decode(t, w).Data["pitch"], &pitch)

	tok := s.token(t, investor, true)
	for _, amount := range []float64{100, 250} {
		w := s.do(http.MethodPost, api+"/interest", tok, map[string]any{
			"pitchId": pitch.ID, "amount": amount, "message": "count me in",
		})
		assertStatus(t, w, http.StatusOK)
		if env := decode(t, w); env.Message != "Interest expressed!" {
			t.Errorf("unexpected message %q", env.Message)
		}
	}

	if n := s.count(`SELECT COUNT(*) FROM venture_interests WHERE pitch_id = ? AND investor_id = ?`, pitch.ID, investor); n != 1 {
		t.Errorf("expected 1 interest row, got %d", n)
	}
	if n := s.count(`SELECT COUNT(*) FROM venture_interests WHERE amount = 250`); n != 1 {
		t.Error("expected latest amount to win")
	}
}

func TestExpressInterest_Errors(t *testing.T) {
	s := setupTestServer(t)
	investor := s.seedAgent(t, "investor")
	tok := s.token(t, investor, true)

	w := s.do(http.MethodPost, api+"/interest", tok, map[string]any{"amount": 10})
	assertStatus(t, w, http.StatusBadRequest)

	w = s.do(http.MethodPost, api+"/interest", tok, map[string]any{"pitchId": uuid.NewString()})
	assertStatus(t, w, http.StatusNotFound)
	if env := decode(t, w); env.Code != "not_found" {
		t.Errorf("expected not_found, got %q", env.Code)
	}

	w = s.do(http.MethodPost, api+"/interest", tok, map[string]any{"pitchId": "not-a-uuid"})
	assertStatus(t, w, http.StatusNotFound)
}

func TestHealthCheck(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(http.MethodGet, "/health", "", nil)
	assertStatus(t, w, http.StatusOK)

	s.db.Close()
	w = s.do(http.MethodGet, "/health", "", nil)
	assertStatus(t, w, http.StatusServiceUnavailable)
}

func TestParseIntOr(t *testing.T) {
	cases := map[string]int{
		"":                     20,
		"0":                    20,
		"abc":                  20,
		"5":                    5,
		"-3":                   -3,
		"5abc":                 5,
		" 5":                   5,
		"\t7 ":                 7,
		"+4":                   4,
		"-":                    20,
		"1e3":                  1,
		"99999999999999999999": 20,
	}
	for in, want := range cases {
		if got := parseIntOr(in, 20); got != want {
			t.Errorf("parseIntOr(%q) = %d, want %d", in, got, want)
		}
	}
}
