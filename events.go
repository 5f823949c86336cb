package quill

import "time"

// NoticeEvent is the payload published to the realtime channel whenever a
// notice becomes visible on a timeline.
type NoticeEvent struct {
	NoticeID       int64     `json:"noticeID"`
	ProfileID      int64     `json:"profileID"`
	ConversationID int64     `json:"conversationID"`
	Verb           string    `json:"verb"`
	Created        time.Time `json:"created"`
}

// RealtimeChannel is the redis pub/sub channel notice events fan out on.
const RealtimeChannel = "quill:notices"
