package domain

import (
	"testing"
	"time"
)

func TestAccessToken_State(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	used := now.Add(-time.Minute)
	tests := []struct {
		name string
		tok  AccessToken
		want TokenState
	}{
		{"fresh", AccessToken{ExpiresAt: now.Add(time.Minute)}, StateUnredeemed},
		{"used", AccessToken{ExpiresAt: now.Add(time.Minute), UsedAt: &used}, StateRedeemed},
		{"expiry boundary", AccessToken{ExpiresAt: now}, StateExpired},
		{"expired and used", AccessToken{ExpiresAt: now.Add(-time.Second), UsedAt: &used}, StateExpired},
	}
	for _, tt := range tests {
		if got := tt.tok.State(now); got != tt.want {
			t.Errorf("%s: State = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestTokenState_String(t *testing.T) {
	if StateRedeemed.String() != "redeemed" {
		t.Errorf("StateRedeemed = %q", StateRedeemed.String())
	}
	if TokenState(42).String() != "unknown" {
		t.Errorf("TokenState(42) = %q", TokenState(42).String())
	}
}
