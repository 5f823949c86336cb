package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/quillsocial/quill"
	"github.com/quillsocial/quill/internal/domain"
)

// fakeStore is an in-memory NoticeStore. Each scan returns the canned id
// list for its variant and counts invocations so tests can assert that a
// path never touched storage.
type fakeStore struct {
	notices map[int64]domain.Notice
	roots   map[int64]domain.Notice

	inboxIDs        []int64
	groupIDs        []int64
	replyIDs        []int64
	conversationIDs []int64
	publicIDs       []int64
	networkIDs      []int64

	scanCalls int
}

func newFakeStore(notices ...domain.Notice) *fakeStore {
	s := &fakeStore{
		notices: make(map[int64]domain.Notice),
		roots:   make(map[int64]domain.Notice),
	}
	for _, n := range notices {
		s.notices[n.ID] = n
	}
	return s
}

func (s *fakeStore) Get(ctx context.Context, id int64) (domain.Notice, error) {
	n, ok := s.notices[id]
	if !ok {
		return domain.Notice{}, domain.NotFoundError{Resource: "notice"}
	}
	return n, nil
}

func (s *fakeStore) GetMany(ctx context.Context, ids []int64) ([]domain.Notice, error) {
	out := make([]domain.Notice, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.notices[id]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *fakeStore) ConversationRoot(ctx context.Context, conversationID int64) (domain.Notice, error) {
	root, ok := s.roots[conversationID]
	if !ok {
		return domain.Notice{}, domain.NotFoundError{Resource: "conversation root"}
	}
	return root, nil
}

func (s *fakeStore) InboxIDs(ctx context.Context, profile domain.Profile, q domain.StreamQuery, verbs quill.VerbFilter) ([]int64, error) {
	s.scanCalls++
	return s.inboxIDs, nil
}

func (s *fakeStore) GroupIDs(ctx context.Context, groupID int64, q domain.StreamQuery, verbs quill.VerbFilter) ([]int64, error) {
	s.scanCalls++
	return s.groupIDs, nil
}

func (s *fakeStore) ReplyIDs(ctx context.Context, profileID int64, q domain.StreamQuery, verbs quill.VerbFilter) ([]int64, error) {
	s.scanCalls++
	return s.replyIDs, nil
}

func (s *fakeStore) ConversationIDs(ctx context.Context, conversationID int64, q domain.StreamQuery, verbs quill.VerbFilter) ([]int64, error) {
	s.scanCalls++
	return s.conversationIDs, nil
}

func (s *fakeStore) PublicIDs(ctx context.Context, q domain.StreamQuery, verbs quill.VerbFilter) ([]int64, error) {
	s.scanCalls++
	return s.publicIDs, nil
}

func (s *fakeStore) NetworkPublicIDs(ctx context.Context, q domain.StreamQuery, verbs quill.VerbFilter) ([]int64, error) {
	s.scanCalls++
	return s.networkIDs, nil
}

// fakeDirectory resolves profiles, groups and memberships from maps.
type fakeDirectory struct {
	profiles map[int64]domain.Profile
	groups   map[int64]domain.Group
	members  map[string]bool
	readable map[string]bool
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		profiles: make(map[int64]domain.Profile),
		groups:   make(map[int64]domain.Group),
		members:  make(map[string]bool),
		readable: make(map[string]bool),
	}
}

func pairKey(a, b int64) string {
	return fmt.Sprintf("%d:%d", a, b)
}

func (d *fakeDirectory) Get(ctx context.Context, id int64) (domain.Profile, error) {
	p, ok := d.profiles[id]
	if !ok {
		return domain.Profile{}, domain.NotFoundError{Resource: "profile"}
	}
	return p, nil
}

func (d *fakeDirectory) GetGroup(ctx context.Context, id int64) (domain.Group, error) {
	g, ok := d.groups[id]
	if !ok {
		return domain.Group{}, domain.NotFoundError{Resource: "group"}
	}
	return g, nil
}

func (d *fakeDirectory) IsGroupMember(ctx context.Context, groupID, profileID int64) (bool, error) {
	return d.members[pairKey(groupID, profileID)], nil
}

func (d *fakeDirectory) CanReadGroupNotice(ctx context.Context, noticeID, profileID int64) (bool, error) {
	return d.readable[pairKey(noticeID, profileID)], nil
}

// fakeCache is an in-memory StreamCache with an injectable read error.
type fakeCache struct {
	pages    map[string][]int64
	getErr   error
	setCalls int
}

func newFakeCache() *fakeCache {
	return &fakeCache{pages: make(map[string][]int64)}
}

func (c *fakeCache) GetIDs(ctx context.Context, key string) ([]int64, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	ids, ok := c.pages[key]
	return ids, ok, nil
}

func (c *fakeCache) SetIDs(ctx context.Context, key string, ids []int64) error {
	c.setCalls++
	c.pages[key] = ids
	return nil
}

func notice(id, profileID, conversationID int64, opts ...func(*domain.Notice)) domain.Notice {
	n := domain.Notice{
		ID:             id,
		ProfileID:      profileID,
		ConversationID: conversationID,
		Verb:           "post",
		IsLocal:        domain.LocalPublic,
		Created:        time.Unix(1700000000+id, 0),
	}
	for _, opt := range opts {
		opt(&n)
	}
	return n
}

func repeatOf(original int64) func(*domain.Notice) {
	return func(n *domain.Notice) {
		n.RepeatOf = &original
	}
}

func scoped(scope int) func(*domain.Notice) {
	return func(n *domain.Notice) {
		n.Scope = scope
	}
}
