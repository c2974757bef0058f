package models

import "time"

// Payment is a stored card reference. The card secret is kept only as a hash.
type Payment struct {
	ID         string    `json:"id"`
	UserID     *string   `json:"userId,omitempty"`
	CardLast4  string    `json:"cardLast4"`
	ExpDate    string    `json:"expDate"`
	SecretHash string    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}
