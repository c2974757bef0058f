package models

import "time"

// Session is a billable record of one parked vehicle's stay at a meter.
type Session struct {
	ID           string     `json:"id"`
	LicensePlate string     `json:"licensePlate"`
	UserID       *string    `json:"userId,omitempty"`
	CarID        *string    `json:"carId,omitempty"`
	MeterID      string     `json:"meterId"`
	UnitPrice    float64    `json:"unitPrice"`
	StartTime    time.Time  `json:"startTime"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	IsOpen       bool       `json:"isOpen"`
	IsConfirmed  bool       `json:"isConfirmed"`
	Cost         *float64   `json:"cost,omitempty"`
	PaymentID    *string    `json:"paymentId,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// SessionFilter narrows user session queries. Nil fields are not filtered on.
type SessionFilter struct {
	Open      *bool
	Confirmed *bool
}
