package stream

import (
	"context"

	"github.com/quillsocial/quill/internal/domain"
)

// Threaded collapses a stream to one representative notice per conversation:
// repeats are replaced by their originals, every conversation appears at most
// once per page, and the emitted notice is the conversation root when one
// resolves. The conversation that appears first in the wrapped stream wins
// the page slot.
type Threaded struct {
	inner Stream
	store NoticeStore
}

func NewThreaded(inner Stream, store NoticeStore) *Threaded {
	return &Threaded{inner: inner, store: store}
}

func (s *Threaded) NoticeIDs(ctx context.Context, q domain.StreamQuery) ([]int64, error) {
	notices, err := s.Notices(ctx, q)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(notices))
	for _, n := range notices {
		ids = append(ids, n.ID)
	}
	return ids, nil
}

func (s *Threaded) Notices(ctx context.Context, q domain.StreamQuery) ([]domain.Notice, error) {
	notices, err := s.inner.Notices(ctx, q)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(notices))
	out := make([]domain.Notice, 0, len(notices))

	for _, n := range notices {
		if n.IsRepeat() {
			original, err := s.store.Get(ctx, *n.RepeatOf)
			if err != nil {
				// repeat of a vanished notice carries nothing to show
				continue
			}
			n = original
		}

		if _, dup := seen[n.ConversationID]; dup {
			continue
		}
		seen[n.ConversationID] = struct{}{}

		root, err := s.store.ConversationRoot(ctx, n.ConversationID)
		if err != nil {
			// no resolvable root: the notice itself is the best substitute
			out = append(out, n)
			continue
		}
		out = append(out, root)
	}

	return out, nil
}
