package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is the recipient snapshot stored on an order. It is written
// once at order creation and never mutated, so later catalog or profile
// edits cannot rewrite history.
type Address struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country"`
}

// Line renders the single-line form used on labels and courier payloads.
func (a Address) Line() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Street, a.City, a.State, a.Zip, a.Country} {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}

// Value serializes the address to JSONB.
func (a Address) Value() (driver.Value, error) {
	if strings.TrimSpace(a.Name) == "" {
		return nil, fmt.Errorf("address: missing name")
	}
	if strings.TrimSpace(a.Phone) == "" {
		return nil, fmt.Errorf("address: missing phone")
	}
	if strings.TrimSpace(a.Street) == "" {
		return nil, fmt.Errorf("address: missing street")
	}
	return json.Marshal(a)
}

// Scan decodes JSONB into the address snapshot.
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, a)
}
