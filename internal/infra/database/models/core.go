package models

import (
	"time"
)

type Profile struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Nickname  string    `json:"nickname" gorm:"type:text;index:profile_nickname,unique"`
	Sandboxed bool      `json:"sandboxed" gorm:"type:boolean;not null;default:false"`
	Rights    string    `json:"rights" gorm:"type:text"` // comma separated right names
	Created   time.Time `json:"created" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type Notice struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	ProfileID      int64     `json:"profileID" gorm:"index;not null"`
	Profile        Profile   `json:"-" gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE;"`
	Content        string    `json:"content" gorm:"type:text"`
	Verb           string    `json:"verb" gorm:"type:text;not null;index"`
	ConversationID int64     `json:"conversationID" gorm:"index;not null"`
	RepeatOf       *int64    `json:"repeatOf" gorm:"index"`
	Scope          int       `json:"scope" gorm:"not null;default:0"`
	IsLocal        int       `json:"isLocal" gorm:"not null;default:1;index"`
	Created        time.Time `json:"created" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp();index"`
}

type Group struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Nickname   string    `json:"nickname" gorm:"type:text;index:group_nickname,unique"`
	ForceScope bool      `json:"forceScope" gorm:"type:boolean;not null;default:false"`
	Created    time.Time `json:"created" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}
