package models

import (
	"time"
)

// Subscription: subscriber follows subscribed.
type Subscription struct {
	SubscriberID int64     `json:"subscriberID" gorm:"primaryKey"`
	Subscriber   Profile   `json:"-" gorm:"foreignKey:SubscriberID;constraint:OnDelete:CASCADE;"`
	SubscribedID int64     `json:"subscribedID" gorm:"primaryKey;index"`
	Subscribed   Profile   `json:"-" gorm:"foreignKey:SubscribedID;constraint:OnDelete:CASCADE;"`
	Created      time.Time `json:"created" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type GroupMember struct {
	GroupID   int64     `json:"groupID" gorm:"primaryKey"`
	Group     Group     `json:"-" gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE;"`
	ProfileID int64     `json:"profileID" gorm:"primaryKey;index"`
	Profile   Profile   `json:"-" gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE;"`
	Created   time.Time `json:"created" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// GroupInboxEntry mirrors a notice into a group's inbox at delivery time.
type GroupInboxEntry struct {
	GroupID  int64     `json:"groupID" gorm:"primaryKey;index:group_inbox_scan"`
	Group    Group     `json:"-" gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE;"`
	NoticeID int64     `json:"noticeID" gorm:"primaryKey"`
	Notice   Notice    `json:"-" gorm:"foreignKey:NoticeID;constraint:OnDelete:CASCADE;"`
	Created  time.Time `json:"created" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp();index:group_inbox_scan"`
}

// Mention records that a notice addressed a profile. The notice's verb is
// not denormalized here; verb filters join back to notices.
type Mention struct {
	NoticeID  int64     `json:"noticeID" gorm:"primaryKey"`
	Notice    Notice    `json:"-" gorm:"foreignKey:NoticeID;constraint:OnDelete:CASCADE;"`
	ProfileID int64     `json:"profileID" gorm:"primaryKey;index"`
	Profile   Profile   `json:"-" gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE;"`
	Modified  time.Time `json:"modified" gorm:"type:timestamp with time zone;not null;default:clock_timestamp();index"`
}

// Attention is an explicit deliver-to marker independent of mentions and
// subscriptions.
type Attention struct {
	NoticeID  int64     `json:"noticeID" gorm:"primaryKey"`
	Notice    Notice    `json:"-" gorm:"foreignKey:NoticeID;constraint:OnDelete:CASCADE;"`
	ProfileID int64     `json:"profileID" gorm:"primaryKey;index"`
	Profile   Profile   `json:"-" gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE;"`
	Created   time.Time `json:"created" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}
