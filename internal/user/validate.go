package user

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user/entity"
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// ValidationError carries one message per rejected field. It matches
// ErrValidationFailed with errors.Is.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidationFailed.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidationFailed }

// Validate checks the fields a create or update requires before anything is sent.
func Validate(data entity.CreateUserData) error {
	fields := map[string]string{}
	if strings.TrimSpace(data.Username) == "" {
		fields["username"] = "Name is required"
	}
	switch email := strings.TrimSpace(data.Email); {
	case email == "":
		fields["email"] = "Email is required"
	case !emailPattern.MatchString(email):
		fields["email"] = "Email is invalid"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
