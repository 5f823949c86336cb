// Package stream implements the notice timeline pipeline: raw per-source
// streams composed with caching, scoping, moderation and threading
// decorators. A decorator never owns storage; everything bottoms out in the
// NoticeStore port.
package stream

import (
	"context"

	"github.com/quillsocial/quill"
	"github.com/quillsocial/quill/internal/domain"
)

// Stream resolves one page of a timeline. NoticeIDs returns identifiers
// newest-first; Notices materializes them in the same order. An empty page
// is never an error.
type Stream interface {
	NoticeIDs(ctx context.Context, q domain.StreamQuery) ([]int64, error)
	Notices(ctx context.Context, q domain.StreamQuery) ([]domain.Notice, error)
}

// Loader materializes notices by id.
type Loader interface {
	Get(ctx context.Context, id int64) (domain.Notice, error)
	GetMany(ctx context.Context, ids []int64) ([]domain.Notice, error)
}

// NoticeStore is the storage capability the raw streams need: ordered,
// filtered identifier scans plus point/multi lookup.
type NoticeStore interface {
	Loader
	ConversationRoot(ctx context.Context, conversationID int64) (domain.Notice, error)
	InboxIDs(ctx context.Context, profile domain.Profile, q domain.StreamQuery, verbs quill.VerbFilter) ([]int64, error)
	GroupIDs(ctx context.Context, groupID int64, q domain.StreamQuery, verbs quill.VerbFilter) ([]int64, error)
	ReplyIDs(ctx context.Context, profileID int64, q domain.StreamQuery, verbs quill.VerbFilter) ([]int64, error)
	ConversationIDs(ctx context.Context, conversationID int64, q domain.StreamQuery, verbs quill.VerbFilter) ([]int64, error)
	PublicIDs(ctx context.Context, q domain.StreamQuery, verbs quill.VerbFilter) ([]int64, error)
	NetworkPublicIDs(ctx context.Context, q domain.StreamQuery, verbs quill.VerbFilter) ([]int64, error)
}

// StreamCache stores resolved ID pages with a bounded TTL. Staleness up to
// the TTL is accepted; there is no write-through invalidation.
type StreamCache interface {
	GetIDs(ctx context.Context, key string) ([]int64, bool, error)
	SetIDs(ctx context.Context, key string, ids []int64) error
}

// idSource is one raw identifier resolver.
type idSource func(ctx context.Context, q domain.StreamQuery) ([]int64, error)

// base turns an identifier source into a full Stream by materializing
// through the loader.
type base struct {
	ids    idSource
	loader Loader
}

func newBase(ids idSource, loader Loader) *base {
	return &base{ids: ids, loader: loader}
}

func (s *base) NoticeIDs(ctx context.Context, q domain.StreamQuery) ([]int64, error) {
	return s.ids(ctx, q)
}

func (s *base) Notices(ctx context.Context, q domain.StreamQuery) ([]domain.Notice, error) {
	ids, err := s.ids(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.loader.GetMany(ctx, ids)
}

// Empty is the impossible stream: a guaranteed-empty timeline that never
// touches the store.
type Empty struct{}

func (Empty) NoticeIDs(ctx context.Context, q domain.StreamQuery) ([]int64, error) {
	return []int64{}, nil
}

func (Empty) Notices(ctx context.Context, q domain.StreamQuery) ([]domain.Notice, error) {
	return []domain.Notice{}, nil
}
