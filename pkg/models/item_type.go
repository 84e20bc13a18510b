package models

import "github.com/google/uuid"

// ItemType is a categorization reusable across items. A nil OrgID marks a
// system-provided type available to every tenant; adopting one copies it
// into the org's scope. Within one org there is at most one non-custom copy
// per system type name.
type ItemType struct {
	ID          int64      `json:"id"`
	OrgID       *uuid.UUID `json:"org_id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	Icon        string     `json:"icon,omitempty"`
	IsCustom    bool       `json:"is_custom"`
}

// IsSystem reports whether the type is system-provided (no org scope).
func (t *ItemType) IsSystem() bool {
	return t.OrgID == nil
}
