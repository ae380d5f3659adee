package port

import (
	"context"

	"github.com/rl1809/ventures/internal/core/domain"
)

type PostRepository interface {
	// CreatePost publishes a feed post and returns it with its assigned ID
	CreatePost(ctx context.Context, post domain.Post) (*domain.Post, error)
}
