// Package models contains domain types for upkept-engine.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ItemStatus constants for tracked equipment.
const (
	ItemStatusActive            = "active"
	ItemStatusMaintenanceNeeded = "maintenance_needed"
	ItemStatusInactive          = "inactive"
	ItemStatusOutOfService      = "out_of_service"
)

// Item represents a piece of tracked equipment. The UID is the public,
// shareable identifier embedded in QR deep links; the numeric ID never
// leaves the API surface for unauthenticated callers.
type Item struct {
	ID                int64      `json:"id"`
	UID               uuid.UUID  `json:"uid"`
	OrgID             uuid.UUID  `json:"org_id"`
	Name              string     `json:"name"`
	Type              string     `json:"type,omitempty"`
	Location          string     `json:"location,omitempty"`
	Status            string     `json:"status"`
	Tags              []string   `json:"tags,omitempty"`
	Metadata          JSONBMap   `json:"metadata,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	LastMaintenanceAt *time.Time `json:"last_maintenance_at,omitempty"`
}

// IsValidItemStatus reports whether s is a known item status.
func IsValidItemStatus(s string) bool {
	switch s {
	case ItemStatusActive, ItemStatusMaintenanceNeeded, ItemStatusInactive, ItemStatusOutOfService:
		return true
	}
	return false
}

// AgeDays returns the item's age in whole days at the given instant.
func (i *Item) AgeDays(now time.Time) int {
	return int(now.Sub(i.CreatedAt).Hours() / 24)
}

// JSONBMap is a map type that handles PostgreSQL JSONB serialization.
type JSONBMap map[string]interface{}

// Value implements driver.Valuer for database serialization.
func (j JSONBMap) Value() (driver.Value, error) {
	if j == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner for database deserialization.
func (j *JSONBMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into JSONBMap", value)
	}

	return json.Unmarshal(bytes, j)
}
