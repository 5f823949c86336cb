package usecase

import (
	"context"

	"github.com/quillsocial/quill/internal/domain"
)

// ProfileDirectory resolves profiles and groups for timeline requests.
type ProfileDirectory interface {
	Get(ctx context.Context, id int64) (domain.Profile, error)
	GetGroup(ctx context.Context, id int64) (domain.Group, error)
}

// QueueStats exposes queue depth for the operator endpoint.
type QueueStats interface {
	Stats(ctx context.Context) ([]domain.QueueStats, error)
}
