package usecase

import (
	"context"

	"github.com/quillsocial/quill/internal/domain"
	"github.com/quillsocial/quill/internal/stream"
)

// TimelineUsecase serves materialized timeline pages. The viewer is explicit
// on every call; nil means anonymous.
type TimelineUsecase struct {
	timelines *stream.Timelines
	directory ProfileDirectory
}

func NewTimelineUsecase(timelines *stream.Timelines, directory ProfileDirectory) *TimelineUsecase {
	return &TimelineUsecase{
		timelines: timelines,
		directory: directory,
	}
}

// Home returns the inbox page for owner, optionally threaded (one root per
// conversation).
func (uc *TimelineUsecase) Home(ctx context.Context, ownerID int64, viewer *domain.Profile, q domain.StreamQuery, threaded bool) ([]domain.Notice, error) {
	owner, err := uc.directory.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var s stream.Stream
	if threaded {
		s = uc.timelines.ThreadedHome(owner, viewer)
	} else {
		s = uc.timelines.Home(owner, viewer)
	}
	return s.Notices(ctx, q)
}

func (uc *TimelineUsecase) Group(ctx context.Context, groupID int64, viewer *domain.Profile, q domain.StreamQuery) ([]domain.Notice, error) {
	s, err := uc.timelines.Group(ctx, groupID, viewer)
	if err != nil {
		return nil, err
	}
	return s.Notices(ctx, q)
}

func (uc *TimelineUsecase) Replies(ctx context.Context, profileID int64, viewer *domain.Profile, q domain.StreamQuery) ([]domain.Notice, error) {
	return uc.timelines.Replies(profileID, viewer).Notices(ctx, q)
}

func (uc *TimelineUsecase) Conversation(ctx context.Context, conversationID int64, viewer *domain.Profile, q domain.StreamQuery) ([]domain.Notice, error) {
	return uc.timelines.Conversation(conversationID, viewer).Notices(ctx, q)
}

func (uc *TimelineUsecase) Public(ctx context.Context, viewer *domain.Profile, q domain.StreamQuery) ([]domain.Notice, error) {
	return uc.timelines.Public(viewer).Notices(ctx, q)
}

func (uc *TimelineUsecase) NetworkPublic(ctx context.Context, viewer *domain.Profile, q domain.StreamQuery) ([]domain.Notice, error) {
	return uc.timelines.NetworkPublic(viewer).Notices(ctx, q)
}
