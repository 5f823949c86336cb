package stream

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/quillsocial/quill"
	"github.com/quillsocial/quill/internal/domain"
)

var tracer = otel.Tracer("stream")

// DirectorySource resolves profiles, groups and memberships for scoping
// decisions.
type DirectorySource interface {
	ProfileSource
	GetGroup(ctx context.Context, id int64) (domain.Group, error)
	IsGroupMember(ctx context.Context, groupID, profileID int64) (bool, error)
	// CanReadGroupNotice reports whether profile belongs to any group the
	// notice was delivered to.
	CanReadGroupNotice(ctx context.Context, noticeID, profileID int64) (bool, error)
}

// Timelines composes the decorator chains for each use case. One instance
// serves all viewers; the viewer is explicit per call.
type Timelines struct {
	store     NoticeStore
	directory DirectorySource
	cache     StreamCache
	hooks     *Hooks
}

func NewTimelines(store NoticeStore, directory DirectorySource, cache StreamCache, hooks *Hooks) *Timelines {
	return &Timelines{
		store:     store,
		directory: directory,
		cache:     cache,
		hooks:     hooks,
	}
}

func (t *Timelines) scopeFilter() Filter {
	return ScopeFilter(func(ctx context.Context, viewer domain.Profile, n domain.Notice) bool {
		// group-scoped notices reach group inboxes at delivery time;
		// membership of any group the notice was delivered to suffices
		ok, err := t.directory.CanReadGroupNotice(ctx, n.ID, viewer.ID)
		if err != nil {
			return false
		}
		return ok
	})
}

// Home is the moderated, cached inbox timeline for owner as seen by viewer.
func (t *Timelines) Home(owner domain.Profile, viewer *domain.Profile) Stream {
	raw := NewInbox(t.store, owner, quill.DefaultVerbFilter())
	cached := NewCached(raw, t.store, t.cache, fmt.Sprintf("inbox:%d", owner.ID))
	moderated := NewModerated(cached, t.store, t.directory, viewer, t.scopeFilter())
	return WithHooks(moderated, t.hooks)
}

// ThreadedHome collapses the home timeline to one root per conversation.
func (t *Timelines) ThreadedHome(owner domain.Profile, viewer *domain.Profile) Stream {
	return WithHooks(NewThreaded(t.Home(owner, viewer), t.store), t.hooks)
}

// Group is the moderated, cached timeline of a group. When the group
// enforces scope and the viewer is not an eligible member the result is the
// impossible stream: guaranteed empty, no store round trip on read.
func (t *Timelines) Group(ctx context.Context, groupID int64, viewer *domain.Profile) (Stream, error) {
	ctx, span := tracer.Start(ctx, "Timelines.Group")
	defer span.End()

	group, err := t.directory.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if group.ForceScope {
		if viewer == nil {
			return Empty{}, nil
		}
		member, err := t.directory.IsGroupMember(ctx, group.ID, viewer.ID)
		if err != nil {
			return nil, err
		}
		if !member && !viewer.HasRight(domain.RightReviewSpam) {
			return Empty{}, nil
		}
	}

	raw := NewGroup(t.store, group.ID, quill.DefaultVerbFilter())
	cached := NewCached(raw, t.store, t.cache, fmt.Sprintf("group:%d", group.ID))
	moderated := NewModerated(cached, t.store, t.directory, viewer, t.scopeFilter())
	return WithHooks(moderated, t.hooks), nil
}

// Replies is the moderated mentions timeline for a profile.
func (t *Timelines) Replies(profileID int64, viewer *domain.Profile) Stream {
	raw := NewReply(t.store, profileID, quill.DefaultVerbFilter())
	cached := NewCached(raw, t.store, t.cache, fmt.Sprintf("replies:%d", profileID))
	moderated := NewModerated(cached, t.store, t.directory, viewer, t.scopeFilter())
	return WithHooks(moderated, t.hooks)
}

// Conversation is the scoped single-conversation view. Not cached: the raw
// stream already materializes the full conversation per read.
func (t *Timelines) Conversation(conversationID int64, viewer *domain.Profile) Stream {
	raw := NewConversation(t.store, conversationID, quill.DefaultVerbFilter())
	moderated := NewModerated(raw, t.store, t.directory, viewer, t.scopeFilter())
	return WithHooks(moderated, t.hooks)
}

// Public is the moderated site firehose.
func (t *Timelines) Public(viewer *domain.Profile) Stream {
	raw := NewPublic(t.store, quill.DefaultVerbFilter())
	cached := NewCached(raw, t.store, t.cache, "public")
	moderated := NewModerated(cached, t.store, t.directory, viewer, t.scopeFilter())
	return WithHooks(moderated, t.hooks)
}

// NetworkPublic is the moderated remote-only firehose.
func (t *Timelines) NetworkPublic(viewer *domain.Profile) Stream {
	raw := NewNetworkPublic(t.store, quill.DefaultVerbFilter())
	cached := NewCached(raw, t.store, t.cache, "networkpublic")
	moderated := NewModerated(cached, t.store, t.directory, viewer, t.scopeFilter())
	return WithHooks(moderated, t.hooks)
}
