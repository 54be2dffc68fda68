package domain

import "time"

// User is the requesting player as read from the store. Authentication
// state lives in the handler; the core only needs identity and country.
type User struct {
	ID             int
	Name           string
	Country        string
	PasswordHash   string
	LatestActivity time.Time
}
