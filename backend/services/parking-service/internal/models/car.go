package models

// Car is a registered vehicle resolved from its license plate.
type Car struct {
	ID           string `json:"id"`
	UserID       string `json:"userId"`
	CarName      string `json:"carName"`
	LicensePlate string `json:"licensePlate"`
}
