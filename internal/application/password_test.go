package application

import (
	"errors"
	"strings"
	"testing"
)

var testArgon2idParams = Argon2idParams{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func TestPasswordHash_RoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := CreatePasswordHash("correct horse battery", testArgon2idParams)
	if err != nil {
		t.Fatalf("CreatePasswordHash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected hash encoding %q", hash)
	}

	if err := VerifyPassword(hash, "correct horse battery"); err != nil {
		t.Fatalf("expected password to verify, got %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	other, err := NewArgon2idHasher(testArgon2idParams)("correct horse battery")
	if err != nil {
		t.Fatalf("hasher failed: %v", err)
	}
	if other == hash {
		t.Fatalf("expected distinct salts to produce distinct hashes")
	}
}

func TestVerifyPassword_RejectsMalformedHashes(t *testing.T) {
	t.Parallel()

	cases := map[string]error{
		"":                                         ErrInvalidPasswordHash,
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA":   ErrInvalidPasswordHash,
		"$argon2id$v=18$m=1,t=1,p=1$c2FsdA$aGFzaA": ErrIncompatiblePasswordVersion,
		"$argon2id$v=19$garbage$c2FsdA$aGFzaA":     ErrInvalidPasswordHash,
		"$argon2id$v=19$m=1,t=1,p=1$!!!$aGFzaA":    ErrInvalidPasswordHash,
	}

	for hash, want := range cases {
		if err := VerifyPassword(hash, "secret"); !errors.Is(err, want) {
			t.Fatalf("VerifyPassword(%q) = %v, want %v", hash, err, want)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	if vErr := validatePassword("   "); vErr.Field("password") != "password is required" {
		t.Fatalf("expected required message, got %#v", vErr.FieldErrors)
	}
	if vErr := validatePassword("short"); !vErr.HasErrors() {
		t.Fatalf("expected short password to be rejected")
	}
	if vErr := validatePassword("long enough"); vErr.HasErrors() {
		t.Fatalf("expected password to be accepted, got %#v", vErr.FieldErrors)
	}
}
