package user

import (
	"fmt"
	"strings"
)

// Mode selects how the list is retrieved.
type Mode int

const (
	// ModeIncremental appends successive pages to one growing list.
	ModeIncremental Mode = iota
	// ModePaged holds exactly one page, addressed by index.
	ModePaged
)

func (m Mode) String() string {
	switch m {
	case ModeIncremental:
		return "incremental"
	case ModePaged:
		return "paged"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode accepts "incremental" (or "infinite") and "paged" (or "pages").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "incremental", "infinite":
		return ModeIncremental, nil
	case "paged", "pages", "pagination":
		return ModePaged, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

func (m Mode) MarshalText() ([]byte, error) {
	if m != ModeIncremental && m != ModePaged {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
