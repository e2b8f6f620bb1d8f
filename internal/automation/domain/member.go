package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Member is the slice of a portal member's profile the engine needs:
// display data for templating and the admin flag for sender resolution.
type Member struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName prefers the full name, falls back to the first name, and
// finally to a generic salutation so templates never render an empty hole.
func (m *Member) DisplayName() string {
	full := strings.TrimSpace(m.FirstName + " " + m.LastName)
	if full != "" {
		return full
	}
	return "there"
}

// DaysSinceJoin is the floor of whole days elapsed since the account was
// created, in UTC.
func (m *Member) DaysSinceJoin(now time.Time) int {
	d := int(now.UTC().Sub(m.CreatedAt.UTC()).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
