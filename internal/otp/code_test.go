package otp

import (
	"strings"
	"testing"
)

func TestGenerateCode_ReturnsSixDigits(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		if len(code) != CodeDigits {
			t.Fatalf("code length = %d, want %d (%q)", len(code), CodeDigits, code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("code contains non-digit: %q", code)
			}
		}
	}
}

func TestGenerateCode_Randomness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		seen[code] = true
	}
	// A handful of birthday collisions in 1e6 is possible; a constant generator is not.
	if len(seen) < 90 {
		t.Errorf("only %d distinct codes out of 100", len(seen))
	}
}

func newTestDigester(t *testing.T) *Digester {
	t.Helper()
	d, err := NewDigester("deployment-secret")
	if err != nil {
		t.Fatalf("NewDigester: %v", err)
	}
	return d
}

func TestNewDigester_EmptySecret(t *testing.T) {
	if _, err := NewDigester(""); err == nil {
		t.Fatal("NewDigester should reject an empty secret")
	}
}

func TestDigest_Consistent(t *testing.T) {
	d := newTestDigester(t)
	h1 := d.Digest("alice@example.com", "LOGIN", "123456")
	h2 := d.Digest("alice@example.com", "LOGIN", "123456")
	if h1 != h2 {
		t.Errorf("Digest not consistent: %q vs %q", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("digest length = %d, want 64 (SHA-256 hex)", len(h1))
	}
	if strings.Contains(h1, "123456") {
		t.Error("digest must not contain the plaintext code")
	}
}

func TestDigest_DifferentInputs(t *testing.T) {
	d := newTestDigester(t)
	base := d.Digest("alice@example.com", "LOGIN", "123456")
	cases := map[string]string{
		"code":    d.Digest("alice@example.com", "LOGIN", "654321"),
		"purpose": d.Digest("alice@example.com", "RESET_PASSWORD", "123456"),
		"email":   d.Digest("bob@example.com", "LOGIN", "123456"),
	}
	for name, h := range cases {
		if h == base {
			t.Errorf("digest unchanged when %s differs", name)
		}
	}
}

func TestDigest_DependsOnSecret(t *testing.T) {
	other, err := NewDigester("another-secret")
	if err != nil {
		t.Fatalf("NewDigester: %v", err)
	}
	d := newTestDigester(t)
	if d.Digest("a@b.c", "LOGIN", "000000") == other.Digest("a@b.c", "LOGIN", "000000") {
		t.Error("digests keyed by different secrets must differ")
	}
}

func TestDigestEqual(t *testing.T) {
	d := newTestDigester(t)
	stored := d.Digest("alice@example.com", "LOGIN", "123456")

	if !DigestEqual(d.Digest("alice@example.com", "LOGIN", "123456"), stored) {
		t.Error("DigestEqual should match the same code")
	}
	if DigestEqual(d.Digest("alice@example.com", "LOGIN", "000000"), stored) {
		t.Error("DigestEqual should not match a different code")
	}
	if DigestEqual(stored[:10], stored) {
		t.Error("DigestEqual should reject a length mismatch")
	}
	if DigestEqual("", stored) {
		t.Error("DigestEqual should reject empty input")
	}
	if !DigestEqual("", "") {
		t.Error("two empty digests are equal")
	}
}
