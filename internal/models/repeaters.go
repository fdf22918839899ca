package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repeater is one entry of the public directory.
type Repeater struct {
	ID        uuid.UUID `json:"id" db:"repeater_id"`
	Callsign  string    `json:"callsign" db:"callsign"`
	Name      string    `json:"name,omitempty" db:"name"`
	Band      string    `json:"band" db:"band"`
	FreqMHz   float64   `json:"freqMhz" db:"freq_mhz"`
	ShiftMHz  float64   `json:"shiftMhz" db:"shift_mhz"`
	ToneHz    float64   `json:"toneHz,omitempty" db:"tone_hz"`
	Mode      string    `json:"mode,omitempty" db:"mode"`
	Location  string    `json:"location,omitempty" db:"location"`
	Latitude  float64   `json:"lat,omitempty" db:"latitude"`
	Longitude float64   `json:"lon,omitempty" db:"longitude"`
	Active    bool      `json:"active" db:"active"`
	UpdatedBy string    `json:"-" db:"updated_by"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Validate checks the mechanical field constraints before a write.
func (r *Repeater) Validate() error {
	if strings.TrimSpace(r.Callsign) == "" {
		return fmt.Errorf("callsign is required")
	}
	if r.FreqMHz <= 0 {
		return fmt.Errorf("freqMhz must be positive")
	}
	switch r.Band {
	case "2m", "70cm", "23cm", "6m", "10m":
	default:
		return fmt.Errorf("unknown band %q", r.Band)
	}
	if r.Latitude < -90 || r.Latitude > 90 {
		return fmt.Errorf("latitude out of range")
	}
	if r.Longitude < -180 || r.Longitude > 180 {
		return fmt.Errorf("longitude out of range")
	}
	return nil
}
