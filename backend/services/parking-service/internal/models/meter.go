package models

import "time"

// Meter is a physical parking meter with its current occupancy.
// Optional fields are pointers so that unset values are omitted from JSON.
type Meter struct {
	ID           string    `json:"id"`
	UnitPrice    float64   `json:"unitPrice"`
	IsOccupied   bool      `json:"isOccupied"`
	LicensePlate *string   `json:"licensePlate,omitempty"`
	IsConfirmed  bool      `json:"isConfirmed"`
	ParkingID    *string   `json:"parkingId,omitempty"`
	Cost         *float64  `json:"cost,omitempty"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Plate returns the parked license plate or an empty string.
func (m *Meter) Plate() string {
	if m == nil || m.LicensePlate == nil {
		return ""
	}
	return *m.LicensePlate
}
