package stream

import (
	"context"

	"github.com/quillsocial/quill/internal/domain"
)

// BeforeHook runs before a page is filled. Returning false short-circuits
// the fill and yields an empty page.
type BeforeHook func(ctx context.Context, q domain.StreamQuery) bool

// AfterHook observes the filled page.
type AfterHook func(ctx context.Context, notices []domain.Notice)

// Hooks is an ordered set of prefill callbacks shared by timeline facades.
type Hooks struct {
	before []BeforeHook
	after  []AfterHook
}

func (h *Hooks) OnBefore(fn BeforeHook) {
	h.before = append(h.before, fn)
}

func (h *Hooks) OnAfter(fn AfterHook) {
	h.after = append(h.after, fn)
}

// WithHooks wraps a stream so registered callbacks run around every fill,
// synchronously in registration order.
func WithHooks(inner Stream, hooks *Hooks) Stream {
	if hooks == nil {
		return inner
	}
	return &hooked{inner: inner, hooks: hooks}
}

type hooked struct {
	inner Stream
	hooks *Hooks
}

func (s *hooked) NoticeIDs(ctx context.Context, q domain.StreamQuery) ([]int64, error) {
	for _, fn := range s.hooks.before {
		if !fn(ctx, q) {
			return []int64{}, nil
		}
	}
	return s.inner.NoticeIDs(ctx, q)
}

func (s *hooked) Notices(ctx context.Context, q domain.StreamQuery) ([]domain.Notice, error) {
	for _, fn := range s.hooks.before {
		if !fn(ctx, q) {
			return []domain.Notice{}, nil
		}
	}
	notices, err := s.inner.Notices(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, fn := range s.hooks.after {
		fn(ctx, notices)
	}
	return notices, nil
}
