package security_test

import (
	"strings"
	"testing"

	"github.com/shota3227/ludi/pkg/config"
	"github.com/shota3227/ludi/pkg/security"
)

func TestHashAndVerifyPassword(t *testing.T) {
	cfg := config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}

	hash, err := security.HashPassword("very-secure-password", cfg)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "" {
		t.Fatal("HashPassword returned empty string")
	}

	ok, err := security.VerifyPassword("very-secure-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPassword failed for the correct password")
	}

	ok, err = security.VerifyPassword("bogus-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	if _, err := security.VerifyPassword("irrelevant", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := security.ValidatePassword("short"); err != security.ErrWeakPassword {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if err := security.ValidatePassword("long-enough"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenerateTempPassword(t *testing.T) {
	pw, err := security.GenerateTempPassword(16)
	if err != nil {
		t.Fatalf("GenerateTempPassword: %v", err)
	}
	if len(pw) != 16 {
		t.Fatalf("expected 16 chars, got %d", len(pw))
	}
	if err := security.ValidatePassword(pw); err != nil {
		t.Fatalf("generated password should validate: %v", err)
	}
	if _, err := security.GenerateTempPassword(0); err == nil {
		t.Fatal("expected error for non-positive length")
	}
}

func TestNeedsRehash(t *testing.T) {
	weak := config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
	strong := weak
	strong.ArgonTime = 2

	hash, err := security.HashPassword("very-secure-password", weak)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if security.NeedsRehash(hash, weak) {
		t.Fatal("hash built with current params should not need a rehash")
	}
	if !security.NeedsRehash(hash, strong) {
		t.Fatal("hash built with old params should need a rehash")
	}
	if !security.NeedsRehash("garbage", weak) {
		t.Fatal("malformed hash should need a rehash")
	}
}

func TestVerifyPasswordRejectsOtherVersion(t *testing.T) {
	hash := "$argon2id$v=16$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5"
	if _, err := security.VerifyPassword("whatever", hash); err != security.ErrIncompatibleHash {
		t.Fatalf("expected ErrIncompatibleHash, got %v", err)
	}
}

func TestValidatePasswordUpperBound(t *testing.T) {
	if err := security.ValidatePassword(strings.Repeat("a", security.MaxPasswordLength+1)); err != security.ErrWeakPassword {
		t.Fatalf("expected ErrWeakPassword for oversized password, got %v", err)
	}
}

func TestGenerateTempPasswordAlphabet(t *testing.T) {
	pw, err := security.GenerateTempPassword(256)
	if err != nil {
		t.Fatalf("GenerateTempPassword: %v", err)
	}
	if strings.ContainsAny(pw, "0O1lI") {
		t.Fatalf("temp password contains ambiguous glyphs: %s", pw)
	}
}
