package service

import (
	"context"
	"fmt"

	"github.com/rl1809/ventures/internal/core/domain"
	"github.com/rl1809/ventures/internal/platform/logger"
	"github.com/rl1809/ventures/internal/platform/metrics"
	"github.com/rl1809/ventures/internal/port"
)

const (
	policyBestEffort = "best_effort"
	policyRequired   = "required"
)

// bestEffortPost publishes a post at most once. Failures are logged and
// dropped; the caller never sees them.
type bestEffortPost struct {
	posts   port.PostRepository
	log     *logger.Logger
	metrics *metrics.Manager
}

func (e bestEffortPost) Publish(ctx context.Context, post domain.Post) {
	if _, err := e.posts.CreatePost(ctx, post); err != nil {
		e.metrics.IncAnnouncementFailure(policyBestEffort)
		e.log.Warn("failed to create announcement post",
			"author_id", post.AuthorID,
			"title", post.Title,
			"error", err,
		)
	}
}

// requiredPost publishes a post the caller depends on. Failures propagate.
type requiredPost struct {
	posts   port.PostRepository
	metrics *metrics.Manager
}

func (e requiredPost) Publish(ctx context.Context, post domain.Post) (*domain.Post, error) {
	created, err := e.posts.CreatePost(ctx, post)
	if err != nil {
		e.metrics.IncAnnouncementFailure(policyRequired)
		return nil, fmt.Errorf("create announcement post: %w", err)
	}
	return created, nil
}
