package domain

import (
	"strings"
	"time"
)

// Role is the authorization level attached to a session.
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleAdmin     Role = "admin"
)

// ParseRole returns the role named by s (case-insensitive) and whether it is known.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleCandidate, RoleAdmin:
		return r, true
	}
	return "", false
}

// OrCandidate returns r if it is a known role and RoleCandidate otherwise. Unknown values
// never gain privileges.
func (r Role) OrCandidate() Role {
	if parsed, ok := ParseRole(string(r)); ok {
		return parsed
	}
	return RoleCandidate
}

// Record is a stored role grant. Absence of a record means RoleCandidate.
type Record struct {
	Email     string
	Role      Role
	GrantedAt time.Time
}
