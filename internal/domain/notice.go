package domain

import "time"

// Notice is a single unit of federated content. This layer never mutates
// notices; posting and deletion happen upstream and deletions arrive as
// tombstone verbs rather than removed rows.
type Notice struct {
	ID             int64     `json:"id"`
	ProfileID      int64     `json:"profileID"`
	Content        string    `json:"content"`
	Verb           string    `json:"verb"`
	ConversationID int64     `json:"conversationID"`
	RepeatOf       *int64    `json:"repeatOf,omitempty"`
	Scope          int       `json:"scope"`
	IsLocal        int       `json:"isLocal"`
	Created        time.Time `json:"created"`
}

// IsRepeat reports whether the notice is a share of another notice.
func (n Notice) IsRepeat() bool {
	return n.RepeatOf != nil
}

// InScope reports whether the notice carries the given scope bit.
func (n Notice) InScope(bit int) bool {
	return n.Scope&bit != 0
}

// Profile is a local or remote account as seen by the stream layer.
type Profile struct {
	ID        int64     `json:"id"`
	Nickname  string    `json:"nickname"`
	Sandboxed bool      `json:"sandboxed"`
	Rights    []string  `json:"rights,omitempty"`
	Created   time.Time `json:"created"`
}

// HasRight reports whether the profile holds a named right.
func (p Profile) HasRight(right string) bool {
	for _, r := range p.Rights {
		if r == right {
			return true
		}
	}
	return false
}

// Group is a named collection of profiles with its own inbox.
type Group struct {
	ID         int64     `json:"id"`
	Nickname   string    `json:"nickname"`
	ForceScope bool      `json:"forceScope"`
	Created    time.Time `json:"created"`
}

// StreamQuery is the paging window for a timeline read. Zero values mean
// unset. SinceID < MaxID is the caller's responsibility; some raw streams
// ignore Offset when an id window is present.
type StreamQuery struct {
	Offset  int
	Limit   int
	SinceID int64
	MaxID   int64
}

// Windowed reports whether an id window is present.
func (q StreamQuery) Windowed() bool {
	return q.SinceID > 0 || q.MaxID > 0
}
