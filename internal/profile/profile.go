package profile

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("profile not found")

// Level is the KYC verification tier. It selects which per-user sending
// limit applies.
type Level string

const (
	LevelBasic    Level = "basic"
	LevelComplete Level = "complete"
)

// Profile holds the sender identity fields collected during verification.
type Profile struct {
	UserID      uuid.UUID
	FullName    string
	DateOfBirth *time.Time
	Address     string
	City        string
	PostalCode  string
	Country     string
	Phone       string
	Level       Level
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// Complete reports whether everything we require before money can move is
// filled in.
func (p *Profile) Complete() bool {
	return p.FullName != "" &&
		p.DateOfBirth != nil &&
		p.Address != "" &&
		p.City != "" &&
		p.Country != "" &&
		p.Phone != ""
}
