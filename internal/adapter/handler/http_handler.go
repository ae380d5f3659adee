package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/ventures/internal/core/domain"
	"github.com/rl1809/ventures/internal/core/service"
	"github.com/rl1809/ventures/internal/platform/auth"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HTTPHandler struct {
	ventureService *service.VentureService
	// trustedVerifierID signs off shipments when set; otherwise founders
	// verify their own.
	trustedVerifierID string
	store             Pinger
}

type SubmitPitchRequest struct {
	Title      string          `json:"title"`
	Vision     string          `json:"vision"`
	Traction   json.RawMessage `json:"traction"`
	FundingAsk *float64        `json:"fundingAsk"`
}

type SubmitShipmentRequest struct {
	RepoURL     string `json:"repoUrl"`
	CommitHash  string `json:"commitHash"`
	Description string `json:"description"`
	ImpactScore *int   `json:"impactScore"`
}

type ExpressInterestRequest struct {
	PitchID string   `json:"pitchId"`
	Amount  *float64 `json:"amount"`
	Message string   `json:"message"`
}

func NewHTTPHandler(ventureService *service.VentureService, trustedVerifierID string, store Pinger) *HTTPHandler {
	return &HTTPHandler{
		ventureService:    ventureService,
		trustedVerifierID: trustedVerifierID,
		store:             store,
	}
}

// POST /pitch
func (h *HTTPHandler) SubmitPitch(c *gin.Context) {
	var req SubmitPitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError("invalid request body"))
		return
	}

	id, _ := auth.FromContext(c.Request.Context())
	pitch, err := h.ventureService.CreatePitch(c.Request.Context(), service.PitchInput{
		FounderID:  id.AgentID,
		Title:      req.Title,
		Vision:     req.Vision,
		Traction:   req.Traction,
		FundingAsk: req.FundingAsk,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Pitch submitted successfully!", gin.H{"pitch": pitch}))
}

// POST /ship
func (h *HTTPHandler) SubmitShipment(c *gin.Context) {
	var req SubmitShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError("invalid request body"))
		return
	}

	id, _ := auth.FromContext(c.Request.Context())
	shipment, err := h.ventureService.CreateShipment(c.Request.Context(), service.ShipmentInput{
		FounderID:   id.AgentID,
		RepoURL:     req.RepoURL,
		CommitHash:  req.CommitHash,
		Description: req.Description,
		VerifiedBy:  h.verifierFor(id),
		ImpactScore: req.ImpactScore,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Shipment verified and posted!", gin.H{"shipment": shipment}))
}

// GET /pitches?status=&limit=&offset=
func (h *HTTPHandler) ListPitches(c *gin.Context) {
	pitches, err := h.ventureService.ListPitches(c.Request.Context(), domain.PitchFilter{
		Status: domain.PitchStatus(c.Query("status")),
		Limit:  parseIntOr(c.Query("limit"), service.DefaultPageLimit),
		Offset: parseIntOr(c.Query("offset"), 0),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Pitches retrieved", gin.H{"pitches": pitches}))
}

// POST /interest
func (h *HTTPHandler) ExpressInterest(c *gin.Context) {
	var req ExpressInterestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError("invalid request body"))
		return
	}

	id, _ := auth.FromContext(c.Request.Context())
	interest, err := h.ventureService.ExpressInterest(c.Request.Context(), service.InterestInput{
		PitchID:    req.PitchID,
		InvestorID: id.AgentID,
		Amount:     req.Amount,
		Message:    req.Message,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Interest expressed!", gin.H{"interest": interest}))
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	if h.store != nil {
		if err := h.store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HTTPHandler) verifierFor(id auth.Identity) string {
	if h.trustedVerifierID != "" {
		return h.trustedVerifierID
	}
	return id.AgentID
}

// parseIntOr reads the leading integer of raw, skipping leading whitespace,
// so "5abc" and " 5" both yield 5. Missing, non-numeric or zero values
// return def.
func parseIntOr(raw string, def int) int {
	raw = strings.TrimLeftFunc(raw, unicode.IsSpace)
	end := 0
	if end < len(raw) && (raw[end] == '+' || raw[end] == '-') {
		end++
	}
	digits := end
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == digits {
		return def
	}
	n, err := strconv.Atoi(raw[:end])
	if err != nil || n == 0 {
		return def
	}
	return n
}
