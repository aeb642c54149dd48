package security

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateULID(t *testing.T) {
	a, b := GenerateULID(), GenerateULID()
	if a == b || !IsULID(a) || !IsULID(b) {
		t.Fatalf("ulids = %q, %q", a, b)
	}
	if IsULID("not-a-ulid") {
		t.Fatal("garbage accepted as ULID")
	}
}

func TestGenerateSecureKey(t *testing.T) {
	key, err := GenerateSecureKey(64)
	if err != nil {
		t.Fatalf("GenerateSecureKey: %v", err)
	}
	if len(key) != 64 {
		t.Fatalf("len = %d, want 64", len(key))
	}
}

func TestPageViewTokenRoundTrip(t *testing.T) {
	now := time.Now()
	token, err := GeneratePageViewToken("pv-1", "secret", now, time.Hour)
	if err != nil {
		t.Fatalf("GeneratePageViewToken: %v", err)
	}
	if err := ValidatePageViewToken(token, "pv-1", "secret", now); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
}

func TestPageViewTokenExpiryFollowsCallerClock(t *testing.T) {
	issued := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	token, err := GeneratePageViewToken("pv-1", "secret", issued, time.Hour)
	if err != nil {
		t.Fatalf("GeneratePageViewToken: %v", err)
	}
	if err := ValidatePageViewToken(token, "pv-1", "secret", issued.Add(59*time.Minute)); err != nil {
		t.Fatalf("token rejected inside its lifetime: %v", err)
	}
	if err := ValidatePageViewToken(token, "pv-1", "secret", issued.Add(61*time.Minute)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken after expiry", err)
	}
}

func TestPageViewTokenRejections(t *testing.T) {
	token, _ := GeneratePageViewToken("pv-1", "secret", time.Now(), time.Hour)
	expired, _ := GeneratePageViewToken("pv-1", "secret", time.Now().Add(-2*time.Hour), time.Hour)

	cases := map[string]struct {
		token, id, secret string
	}{
		"other page view": {token, "pv-2", "secret"},
		"wrong secret":    {token, "pv-1", "other"},
		"expired":         {expired, "pv-1", "secret"},
		"garbage":         {"abc.def.ghi", "pv-1", "secret"},
	}
	for name, tc := range cases {
		if err := ValidatePageViewToken(tc.token, tc.id, tc.secret, time.Now()); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: err = %v, want ErrInvalidToken", name, err)
		}
	}
}
