package repository

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/quillsocial/quill"
	"github.com/quillsocial/quill/internal/domain"
	"github.com/quillsocial/quill/internal/infra/database/models"
)

// conversationFetchCap bounds the in-memory conversation fetch. Conversations
// are typically small; anything past the cap is unreachable via this stream.
const conversationFetchCap = 500

type NoticeRepository struct {
	db *gorm.DB
}

func NewNoticeRepository(db *gorm.DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

func (r *NoticeRepository) Get(ctx context.Context, id int64) (domain.Notice, error) {
	var row models.Notice
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Notice{}, domain.NotFoundError{Resource: "notice"}
		}
		return domain.Notice{}, errors.Wrap(err, "get notice")
	}
	return noticeToDomain(row), nil
}

// GetMany returns the notices for ids, preserving the input order and
// silently skipping ids that no longer resolve.
func (r *NoticeRepository) GetMany(ctx context.Context, ids []int64) ([]domain.Notice, error) {
	if len(ids) == 0 {
		return []domain.Notice{}, nil
	}

	var rows []models.Notice
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "multiget notices")
	}

	byID := make(map[int64]models.Notice, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	out := make([]domain.Notice, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, noticeToDomain(row))
		}
	}
	return out, nil
}

// ConversationRoot returns the oldest notice of a conversation.
func (r *NoticeRepository) ConversationRoot(ctx context.Context, conversationID int64) (domain.Notice, error) {
	var row models.Notice
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created ASC, id ASC").
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Notice{}, domain.NotFoundError{Resource: "conversation root"}
		}
		return domain.Notice{}, errors.Wrap(err, "conversation root")
	}
	return noticeToDomain(row), nil
}

// InboxIDs resolves the home timeline: mentions, subscribed authors, group
// inboxes for the profile's groups and explicit attentions, bounded to
// notices created after the profile itself. Newest first by id.
func (r *NoticeRepository) InboxIDs(ctx context.Context, profile domain.Profile, q domain.StreamQuery, verbs quill.VerbFilter) ([]int64, error) {

	sources := r.db.WithContext(ctx).Model(&models.Notice{}).
		Where("notices.created > ?", profile.Created).
		Where(
			r.db.Where("notices.id IN (?)",
				r.db.Model(&models.Mention{}).Select("notice_id").Where("profile_id = ?", profile.ID)).
				Or("notices.profile_id IN (?)",
					r.db.Model(&models.Subscription{}).Select("subscribed_id").Where("subscriber_id = ?", profile.ID)).
				Or("notices.id IN (?)",
					r.db.Model(&models.GroupInboxEntry{}).Select("notice_id").Where("group_id IN (?)",
						r.db.Model(&models.GroupMember{}).Select("group_id").Where("profile_id = ?", profile.ID))).
				Or("notices.id IN (?)",
					r.db.Model(&models.Attention{}).Select("notice_id").Where("profile_id = ?", profile.ID)),
		)

	sources = applyVerbFilter(sources, "notices.verb", verbs)
	sources = applyIDWindow(sources, "notices.id", q)
	sources = applyPaging(sources, q)

	var ids []int64
	err := sources.
		Select("notices.id").
		Order("notices.id DESC").
		Scan(&ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "inbox ids")
	}
	return ids, nil
}

// GroupIDs resolves a group inbox, ordered (created DESC, notice_id DESC).
func (r *NoticeRepository) GroupIDs(ctx context.Context, groupID int64, q domain.StreamQuery, verbs quill.VerbFilter) ([]int64, error) {

	tx := r.db.WithContext(ctx).Model(&models.GroupInboxEntry{}).
		Joins("JOIN notices n ON n.id = group_inbox_entries.notice_id").
		Where("group_inbox_entries.group_id = ?", groupID)

	tx = applyVerbFilter(tx, "n.verb", verbs)
	tx = applyIDWindow(tx, "group_inbox_entries.notice_id", q)
	tx = applyPaging(tx, q)

	var ids []int64
	err := tx.
		Select("group_inbox_entries.notice_id").
		Order("group_inbox_entries.created DESC, group_inbox_entries.notice_id DESC").
		Scan(&ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "group inbox ids")
	}
	return ids, nil
}

// ReplyIDs resolves mentions of a profile, ordered (modified DESC,
// notice_id DESC). The mention table carries no verb, so verb filters join
// back to notices.
func (r *NoticeRepository) ReplyIDs(ctx context.Context, profileID int64, q domain.StreamQuery, verbs quill.VerbFilter) ([]int64, error) {

	tx := r.db.WithContext(ctx).Model(&models.Mention{}).
		Joins("JOIN notices n ON n.id = mentions.notice_id").
		Where("mentions.profile_id = ?", profileID)

	tx = applyVerbFilter(tx, "n.verb", verbs)
	tx = applyIDWindow(tx, "mentions.notice_id", q)
	tx = applyPaging(tx, q)

	var ids []int64
	err := tx.
		Select("mentions.notice_id").
		Order("mentions.modified DESC, mentions.notice_id DESC").
		Scan(&ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "reply ids")
	}
	return ids, nil
}

// ConversationIDs fetches the whole conversation (capped) and pages the
// materialized list in memory, newest first. SinceID/MaxID are not honored
// here; conversations are expected to stay small.
func (r *NoticeRepository) ConversationIDs(ctx context.Context, conversationID int64, q domain.StreamQuery, verbs quill.VerbFilter) ([]int64, error) {

	tx := r.db.WithContext(ctx).Model(&models.Notice{}).
		Where("conversation_id = ?", conversationID)
	tx = applyVerbFilter(tx, "verb", verbs)

	var rows []models.Notice
	err := tx.Limit(conversationFetchCap).Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "conversation notices")
	}

	return conversationPage(rows, q), nil
}

// conversationPage sorts a materialized conversation newest first (created
// DESC, id DESC) and applies the offset/limit window. A zero Limit means the
// rest of the conversation.
func conversationPage(rows []models.Notice, q domain.StreamQuery) []int64 {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Created.Equal(rows[j].Created) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].Created.After(rows[j].Created)
	})

	start := q.Offset
	if start > len(rows) {
		start = len(rows)
	}
	end := len(rows)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}

	ids := make([]int64, 0, end-start)
	for _, row := range rows[start:end] {
		ids = append(ids, row.ID)
	}
	return ids
}

// PublicIDs resolves the site firehose: local-public and remote notices,
// never non-public or gateway rows. Ordered (created DESC, id DESC).
func (r *NoticeRepository) PublicIDs(ctx context.Context, q domain.StreamQuery, verbs quill.VerbFilter) ([]int64, error) {
	return r.firehoseIDs(ctx, []int{domain.LocalPublic, domain.Remote}, q, verbs)
}

// NetworkPublicIDs resolves the remote-only firehose.
func (r *NoticeRepository) NetworkPublicIDs(ctx context.Context, q domain.StreamQuery, verbs quill.VerbFilter) ([]int64, error) {
	return r.firehoseIDs(ctx, []int{domain.Remote}, q, verbs)
}

func (r *NoticeRepository) firehoseIDs(ctx context.Context, origins []int, q domain.StreamQuery, verbs quill.VerbFilter) ([]int64, error) {

	tx := r.db.WithContext(ctx).Model(&models.Notice{}).
		Where("is_local IN ?", origins)

	tx = applyVerbFilter(tx, "verb", verbs)
	tx = applyIDWindow(tx, "id", q)
	tx = applyPaging(tx, q)

	var ids []int64
	err := tx.
		Select("id").
		Order("created DESC, id DESC").
		Scan(&ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "public ids")
	}
	return ids, nil
}

// applyVerbFilter adds the positive IN and negative NOT IN verb predicates.
// Both can be present at once; each verb is matched in absolute and relative
// form.
func applyVerbFilter(tx *gorm.DB, column string, verbs quill.VerbFilter) *gorm.DB {
	if len(verbs) == 0 {
		return tx
	}
	included, excluded := verbs.Partition()
	if len(included) > 0 {
		tx = tx.Where(column+" IN ?", included)
	}
	if len(excluded) > 0 {
		tx = tx.Where(column+" NOT IN ?", excluded)
	}
	return tx
}

func applyIDWindow(tx *gorm.DB, column string, q domain.StreamQuery) *gorm.DB {
	if !q.Windowed() {
		return tx
	}
	if q.SinceID > 0 {
		tx = tx.Where(column+" > ?", q.SinceID)
	}
	if q.MaxID > 0 {
		tx = tx.Where(column+" <= ?", q.MaxID)
	}
	return tx
}

// applyPaging adds LIMIT/OFFSET. Zero values mean unset, matching the
// StreamQuery contract: an unset limit pages nothing away.
func applyPaging(tx *gorm.DB, q domain.StreamQuery) *gorm.DB {
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	return tx
}

func noticeToDomain(row models.Notice) domain.Notice {
	return domain.Notice{
		ID:             row.ID,
		ProfileID:      row.ProfileID,
		Content:        row.Content,
		Verb:           row.Verb,
		ConversationID: row.ConversationID,
		RepeatOf:       row.RepeatOf,
		Scope:          row.Scope,
		IsLocal:        row.IsLocal,
		Created:        row.Created,
	}
}

func splitRights(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
