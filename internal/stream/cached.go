package stream

import (
	"context"

	"github.com/quillsocial/quill/internal/domain"
	"github.com/quillsocial/quill/internal/infra/cache"
)

// Cached wraps a stream with an ID-page cache. A hit returns the cached page
// unchanged; a miss delegates and stores. Semantics are untouched, only the
// latency/staleness trade-off changes.
type Cached struct {
	inner    Stream
	loader   Loader
	cache    StreamCache
	template string
}

func NewCached(inner Stream, loader Loader, c StreamCache, template string) *Cached {
	return &Cached{
		inner:    inner,
		loader:   loader,
		cache:    c,
		template: template,
	}
}

func (s *Cached) NoticeIDs(ctx context.Context, q domain.StreamQuery) ([]int64, error) {
	key := cache.Key(s.template, q)

	ids, hit, err := s.cache.GetIDs(ctx, key)
	if err == nil && hit {
		return ids, nil
	}
	// a cache read failure degrades to a store read

	ids, err = s.inner.NoticeIDs(ctx, q)
	if err != nil {
		return nil, err
	}

	// best effort; losing the write only costs the next read
	_ = s.cache.SetIDs(ctx, key, ids)

	return ids, nil
}

func (s *Cached) Notices(ctx context.Context, q domain.StreamQuery) ([]domain.Notice, error) {
	ids, err := s.NoticeIDs(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.loader.GetMany(ctx, ids)
}
