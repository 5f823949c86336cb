package domain

import "time"

// QueueItem is one unit of pending background work. An item is Pending until
// a consumer claims it; a claim is an advisory time lease recorded in
// Claimed, not a distributed lock.
type QueueItem struct {
	ID        int64      `json:"id"`
	Frame     []byte     `json:"frame"`
	Transport string     `json:"transport"`
	Created   time.Time  `json:"created"`
	Claimed   *time.Time `json:"claimed,omitempty"`
}

// IsClaimed reports whether the item currently holds a claim.
func (i QueueItem) IsClaimed() bool {
	return i.Claimed != nil
}

// QueueStats is a per-transport snapshot of queue depth.
type QueueStats struct {
	Transport string `json:"transport"`
	Pending   int64  `json:"pending"`
	Claimed   int64  `json:"claimed"`
}
