package stream

import (
	"context"

	"github.com/quillsocial/quill"
	"github.com/quillsocial/quill/internal/domain"
)

// NewInbox is the raw home timeline for a profile: mentions, subscribed
// authors, group inboxes and attentions, newest first.
func NewInbox(store NoticeStore, profile domain.Profile, verbs quill.VerbFilter) Stream {
	return newBase(func(ctx context.Context, q domain.StreamQuery) ([]int64, error) {
		return store.InboxIDs(ctx, profile, q, verbs)
	}, store)
}

// NewGroup is the raw inbox of one group.
func NewGroup(store NoticeStore, groupID int64, verbs quill.VerbFilter) Stream {
	return newBase(func(ctx context.Context, q domain.StreamQuery) ([]int64, error) {
		return store.GroupIDs(ctx, groupID, q, verbs)
	}, store)
}

// NewReply is the raw mentions-of stream for a profile.
func NewReply(store NoticeStore, profileID int64, verbs quill.VerbFilter) Stream {
	return newBase(func(ctx context.Context, q domain.StreamQuery) ([]int64, error) {
		return store.ReplyIDs(ctx, profileID, q, verbs)
	}, store)
}

// NewConversation is the raw single-conversation stream. Paging happens on
// the materialized conversation; SinceID/MaxID are not honored here.
func NewConversation(store NoticeStore, conversationID int64, verbs quill.VerbFilter) Stream {
	return newBase(func(ctx context.Context, q domain.StreamQuery) ([]int64, error) {
		return store.ConversationIDs(ctx, conversationID, q, verbs)
	}, store)
}

// NewPublic is the raw site firehose (local-public plus remote notices).
func NewPublic(store NoticeStore, verbs quill.VerbFilter) Stream {
	return newBase(func(ctx context.Context, q domain.StreamQuery) ([]int64, error) {
		return store.PublicIDs(ctx, q, verbs)
	}, store)
}

// NewNetworkPublic is the remote-only firehose.
func NewNetworkPublic(store NoticeStore, verbs quill.VerbFilter) Stream {
	return newBase(func(ctx context.Context, q domain.StreamQuery) ([]int64, error) {
		return store.NetworkPublicIDs(ctx, q, verbs)
	}, store)
}
