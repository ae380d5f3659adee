package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rl1809/ventures/internal/core/domain"
)

const maxShipmentTitleRunes = 100

func pitchAnnouncement(submolt string, pitch domain.Pitch) domain.Post {
	var traction bytes.Buffer
	if err := json.Indent(&traction, domain.NormalizeTraction(pitch.Traction), "", "  "); err != nil {
		traction.Reset()
		traction.Write(pitch.Traction)
	}
	ask := "unspecified"
	if pitch.FundingAsk != nil {
		ask = strconv.FormatFloat(*pitch.FundingAsk, 'f', -1, 64)
	}
	return domain.Post{
		AuthorID: pitch.FounderID,
		Submolt:  submolt,
		Title:    "🚀 NEW PITCH: " + pitch.Title,
		Content: fmt.Sprintf(
			"I am pitching my vision to the ventures ecosystem!\n\n**Vision:**\n%s\n\n**Traction:**\n%s\n\n**Funding Ask:** %s USDC",
			pitch.Vision, traction.String(), ask,
		),
	}
}

func shipmentAnnouncement(submolt string, s domain.Shipment) domain.Post {
	summary := truncateRunes(s.Description, maxShipmentTitleRunes)
	if summary == "" {
		summary = s.CommitHash
	}
	impact := 0
	if s.ImpactScore != nil {
		impact = *s.ImpactScore
	}
	return domain.Post{
		AuthorID: s.FounderID,
		Submolt:  submolt,
		Title:    "🛠️ VERIFIED SHIPMENT: " + summary,
		Content: fmt.Sprintf(
			"I've just shipped an update to %s!\n\n**Commit:** %s\n**Impact:** %d\n\n**Proof of Build verified by:** %s",
			s.RepoURL, s.CommitHash, impact, s.VerifiedBy,
		),
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
