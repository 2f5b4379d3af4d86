package utils

import (
	"strings"
	"testing"
)

func TestHashPassword_NotPlaintext(t *testing.T) {
	hash, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "" || hash == "password123" {
		t.Errorf("HashPassword() returned %q", hash)
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Errorf("expected a bcrypt hash, got %q", hash)
	}

	again, _ := HashPassword("password123")
	if again == hash {
		t.Error("two hashes of the same password should differ by salt")
	}
}

func TestHashPassword_TooLong(t *testing.T) {
	if _, err := HashPassword(strings.Repeat("x", 73)); err == nil {
		t.Error("expected error for passwords longer than 72 bytes")
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{"match", "correct-horse", hash, true},
		{"wrong password", "battery-staple", hash, false},
		{"case matters", "Correct-Horse", hash, false},
		{"empty password", "", hash, false},
		{"malformed hash", "correct-horse", "not-a-hash", false},
		{"empty hash", "correct-horse", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.password, tt.hash); got != tt.want {
				t.Errorf("CheckPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}
