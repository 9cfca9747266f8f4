// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$") {
		t.Fatalf("unexpected hash format: %s", hash)
	}

	again, _ := HashPassword("changeme")
	if again == hash {
		t.Error("two hashes of the same password should use different salts")
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	tests := []struct {
		password string
		want     bool
	}{
		{"changeme", true},
		{"wrongpassword", false},
		{"", false},
		{"Changeme", false},
	}
	for _, tt := range tests {
		valid, err := CheckPassword(tt.password, hash)
		if err != nil {
			t.Fatalf("CheckPassword(%q) error: %v", tt.password, err)
		}
		if valid != tt.want {
			t.Errorf("CheckPassword(%q) = %v, want %v", tt.password, valid, tt.want)
		}
	}
}

func TestCheckPassword_ForeignParameters(t *testing.T) {
	// Hash produced with m=65536,t=1,p=4 for "changeme".
	dbHash := "$argon2id$v=19$m=65536,t=1,p=4$mucMvOaS6lZ2LWNS1OEFKw$UYEWv8cvCOO6l2zGeqv3JPVe1nyy0x9GXBfYEuDM544"

	valid, err := CheckPassword("changeme", dbHash)
	if err != nil {
		t.Fatalf("CheckPassword error: %v", err)
	}
	if !valid {
		t.Fatal("hash rejected correct password")
	}
	if !NeedsRehash(dbHash) {
		t.Error("NeedsRehash() = false for non-default parameters")
	}
}

func TestCheckPassword_InvalidHash(t *testing.T) {
	for _, h := range []string{"", "plain", "$bcrypt$x$y$z$w", "$argon2id$v=19$m=x$a$b"} {
		_, err := CheckPassword("changeme", h)
		if !errors.Is(err, ErrInvalidHash) {
			t.Errorf("CheckPassword(%q) error = %v, want ErrInvalidHash", h, err)
		}
	}
}

func TestNeedsRehash_Current(t *testing.T) {
	hash, _ := HashPassword("changeme")
	if NeedsRehash(hash) {
		t.Error("NeedsRehash() = true for a fresh hash")
	}
}
