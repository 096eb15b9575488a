package domain

import "time"

// User is an account identity. Items reference it by ID and never embed it.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Created      time.Time
}
