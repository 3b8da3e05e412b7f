package domain

import "time"

// Conversation is the persisted record of one logical conversation. A
// conversation outlives individual requests and holds a group of snapshots,
// one per paused step, so the user can navigate back.
type Conversation struct {
	ID     string `json:"id"`
	FlowID string `json:"flow_id"`

	// Scope is the serialized conversation scope, shared by every snapshot.
	Scope []byte `json:"scope,omitempty"`

	// Snapshots is ordered from oldest to newest.
	Snapshots []Snapshot `json:"snapshots"`

	// NextSnapshotID is the id handed out to the next snapshot. Snapshot ids are never reused.
	NextSnapshotID int `json:"next_snapshot_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot is a serialized flow execution captured at a pause point.
type Snapshot struct {
	ID        int       `json:"id"`
	Data      []byte    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot returns the snapshot with the given id.
func (c *Conversation) Snapshot(id int) (Snapshot, bool) {
	for _, s := range c.Snapshots {
		if s.ID == id {
			return s, true
		}
	}
	return Snapshot{}, false
}

// Clone returns a deep copy of the record.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Scope = cloneBytes(c.Scope)
	cp.Snapshots = make([]Snapshot, len(c.Snapshots))
	for i, s := range c.Snapshots {
		s.Data = cloneBytes(s.Data)
		cp.Snapshots[i] = s
	}
	return &cp
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
