package usecase

import (
	"context"

	"github.com/quillsocial/quill/internal/domain"
	"github.com/quillsocial/quill/internal/queue"
)

// QueueUsecase wraps enqueueing and operator-facing queue introspection.
type QueueUsecase struct {
	store queue.Store
	stats QueueStats
}

func NewQueueUsecase(store queue.Store, stats QueueStats) *QueueUsecase {
	return &QueueUsecase{store: store, stats: stats}
}

// Enqueue frames a payload and appends it for the given transport. Insert
// failures surface to the caller; delivery must not be dropped silently.
func (uc *QueueUsecase) Enqueue(ctx context.Context, payload any, transport string) (int64, error) {
	frame, err := queue.EncodeFrame(payload)
	if err != nil {
		return 0, err
	}
	return uc.store.Enqueue(ctx, frame, transport)
}

func (uc *QueueUsecase) Stats(ctx context.Context) ([]domain.QueueStats, error) {
	return uc.stats.Stats(ctx)
}
