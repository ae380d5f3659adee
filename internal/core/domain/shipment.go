package domain

import "time"

// Shipment is a Proof of Build record. It always references the
// announcement post created for it.
type Shipment struct {
	ID          string    `json:"id"`
	FounderID   string    `json:"founder_id"`
	PostID      string    `json:"post_id"`
	RepoURL     string    `json:"repo_url"`
	CommitHash  string    `json:"commit_hash"`
	Description string    `json:"description"`
	VerifiedBy  string    `json:"verified_by"`
	ImpactScore *int      `json:"impact_score"`
	CreatedAt   time.Time `json:"created_at"`
}
