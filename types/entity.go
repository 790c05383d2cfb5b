// Package types provides common types used across streamfee.
package types

import "time"

// Entity carries record timestamps. CreatedAt is set once at registration;
// UpdatedAt moves with every committed change.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity creates an Entity stamped with t (normalized to UTC).
func NewEntity(t time.Time) Entity {
	t = t.UTC()
	return Entity{
		CreatedAt: t,
		UpdatedAt: t,
	}
}

// Touch moves UpdatedAt forward to t. Earlier times are ignored.
func (e *Entity) Touch(t time.Time) {
	t = t.UTC()
	if t.After(e.UpdatedAt) {
		e.UpdatedAt = t
	}
}
