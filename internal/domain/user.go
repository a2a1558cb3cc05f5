package domain

import "time"

// User is an account created on first sign-in through the identity provider.
type User struct {
	ID        string
	GoogleSub string
	Email     string
	Name      string
	PhotoURL  string
	Locale    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
