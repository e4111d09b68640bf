package user

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DefaultTimezone is assigned to users who never picked a zone.
const DefaultTimezone = "Europe/Moscow"

var ErrInvalidTimezone = errors.New("invalid time zone")

// SupportedTimezones are the zones offered at registration.
var SupportedTimezones = []string{
	"Europe/Moscow",
	"Europe/Kaliningrad",
	"Asia/Yekaterinburg",
	"Asia/Novosibirsk",
	"Asia/Krasnoyarsk",
	"Asia/Irkutsk",
	"Asia/Yakutsk",
	"Asia/Vladivostok",
	"Asia/Sakhalin",
	"Asia/Magadan",
	"Asia/Kamchatka",
}

// User is the owner of habits. A user without TelegramChatID never gets reminders.
type User struct {
	ID             int64
	Email          string
	Timezone       string
	TelegramChatID sql.NullInt64
	IsActive       bool
	CreatedAt      time.Time
}

// CanBeReminded reports whether the user has somewhere to send reminders to.
func (u *User) CanBeReminded() bool {
	return u.TelegramChatID.Valid
}

// LoadLocation resolves an IANA zone name. Unlike time.LoadLocation it rejects
// "" and "Local", which would silently resolve to UTC or the server zone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidTimezone, name, err)
	}
	return loc, nil
}

// ValidateTimezone is the write-time check for a user's zone choice.
func ValidateTimezone(name string) error {
	for _, tz := range SupportedTimezones {
		if tz == name {
			_, err := LoadLocation(name)
			return err
		}
	}
	return fmt.Errorf("%w: %q is not supported", ErrInvalidTimezone, name)
}
