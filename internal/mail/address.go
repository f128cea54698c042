package mail

import (
	"errors"
	netmail "net/mail"
	"strings"
)

// ErrInvalidAddress indicates an email address is not shaped like one.
var ErrInvalidAddress = errors.New("invalid email address")

// maxAddressLen is the RFC 5321 forward-path limit.
const maxAddressLen = 254

// Normalize trims and lowercases raw and checks that it is a bare address. Display
// names and comments ("Alice <alice@example.com>") are rejected.
func Normalize(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" || len(s) > maxAddressLen {
		return "", ErrInvalidAddress
	}
	addr, err := netmail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", ErrInvalidAddress
	}
	if !strings.Contains(s[strings.LastIndexByte(s, '@')+1:], ".") {
		return "", ErrInvalidAddress
	}
	return s, nil
}
