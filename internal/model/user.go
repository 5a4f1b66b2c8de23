package model

import "time"

// User is an entry in the principal directory. There is no password: login
// is email + national id followed by a one-time code, matching the intake
// flow this service fronts.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	NationalID    string    `json:"national_id"`
	Role          Role      `json:"role"`
	SessionActive bool      `json:"session_active"`
	RegisteredAt  time.Time `json:"registered_at"`
}
