package store

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Role is the closed set of message authors and account kinds.
type Role int

const (
	RoleUser Role = iota + 1
	RoleProfessional
	RoleAdministrator
	RoleAssistant
)

// Roles lists every valid role in declaration order.
var Roles = []Role{RoleUser, RoleProfessional, RoleAdministrator, RoleAssistant}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleProfessional:
		return "professional"
	case RoleAdministrator:
		return "administrator"
	case RoleAssistant:
		return "assistant"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleProfessional, RoleAdministrator, RoleAssistant:
		return true
	default:
		return false
	}
}

// IsHuman reports whether the role belongs to an account rather than the model.
func (r Role) IsHuman() bool {
	switch r {
	case RoleUser, RoleProfessional, RoleAdministrator:
		return true
	case RoleAssistant:
		return false
	default:
		return false
	}
}

func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case "professional":
		return RoleProfessional, nil
	case "administrator":
		return RoleAdministrator, nil
	case "assistant":
		return RoleAssistant, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("cannot store invalid role %d", int(r))
	}
	return r.String(), nil
}

func (r *Role) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	default:
		return fmt.Errorf("unsupported role column type %T", src)
	}
}
