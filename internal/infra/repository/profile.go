package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/quillsocial/quill/internal/domain"
	"github.com/quillsocial/quill/internal/infra/database/models"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Get(ctx context.Context, id int64) (domain.Profile, error) {
	var row models.Profile
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Profile{}, domain.NotFoundError{Resource: "profile"}
		}
		return domain.Profile{}, errors.Wrap(err, "get profile")
	}
	return domain.Profile{
		ID:        row.ID,
		Nickname:  row.Nickname,
		Sandboxed: row.Sandboxed,
		Rights:    splitRights(row.Rights),
		Created:   row.Created,
	}, nil
}

func (r *ProfileRepository) GetGroup(ctx context.Context, id int64) (domain.Group, error) {
	var row models.Group
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Group{}, domain.NotFoundError{Resource: "group"}
		}
		return domain.Group{}, errors.Wrap(err, "get group")
	}
	return domain.Group{
		ID:         row.ID,
		Nickname:   row.Nickname,
		ForceScope: row.ForceScope,
		Created:    row.Created,
	}, nil
}

// CanReadGroupNotice reports whether the profile belongs to any group the
// notice was delivered to.
func (r *ProfileRepository) CanReadGroupNotice(ctx context.Context, noticeID, profileID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GroupInboxEntry{}).
		Joins("JOIN group_members gm ON gm.group_id = group_inbox_entries.group_id").
		Where("group_inbox_entries.notice_id = ? AND gm.profile_id = ?", noticeID, profileID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "group notice visibility")
	}
	return count > 0, nil
}

func (r *ProfileRepository) IsGroupMember(ctx context.Context, groupID, profileID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GroupMember{}).
		Where("group_id = ? AND profile_id = ?", groupID, profileID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "group membership")
	}
	return count > 0, nil
}
