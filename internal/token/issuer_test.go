package token

import (
	"bytes"
	"regexp"
	"testing"
	"time"
)

func TestIssue_format(t *testing.T) {
	iss := NewIssuer(0)
	value, _, err := iss.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if len(value) != Length {
		t.Errorf("token length = %d, want %d", len(value), Length)
	}
	if !regexp.MustCompile(`^[0-9a-f]{64}$`).MatchString(value) {
		t.Errorf("token %q is not 64 lowercase hex chars", value)
	}
}

func TestIssue_expiry(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	iss := NewIssuer(30*24*time.Hour, WithClock(func() time.Time { return fixed }))
	_, exp, err := iss.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	want := fixed.Add(30 * 24 * time.Hour)
	if !exp.Equal(want) {
		t.Errorf("expiry = %v, want %v", exp, want)
	}
}

func TestIssue_deterministicWithSeededRand(t *testing.T) {
	src := bytes.NewReader(bytes.Repeat([]byte{0xAB}, 32))
	iss := NewIssuer(time.Hour, WithRand(src))
	value, _, err := iss.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if value != "abababababababababababababababababababababababababababababababab" {
		t.Errorf("unexpected token %q", value)
	}
}

func TestIssue_unique(t *testing.T) {
	iss := NewIssuer(time.Hour)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		v, _, err := iss.Issue()
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		if seen[v] {
			t.Fatalf("duplicate token issued: %s", v)
		}
		seen[v] = true
	}
}

func TestDigest(t *testing.T) {
	// SHA-256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Digest("abc"); got != want {
		t.Errorf("Digest() = %s, want %s", got, want)
	}
}

func TestEqual(t *testing.T) {
	if !Equal("deadbeef", "deadbeef") {
		t.Error("identical tokens should compare equal")
	}
	if Equal("deadbeef", "deadbeee") {
		t.Error("different tokens should not compare equal")
	}
	if Equal("deadbeef", "deadbee") {
		t.Error("prefix must not match")
	}
}
