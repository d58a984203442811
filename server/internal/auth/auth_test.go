package auth

import (
	"strings"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "hunter2" {
		t.Fatal("Password stored in the clear")
	}
	if !CheckPassword("hunter2", hash) {
		t.Error("Correct password rejected")
	}
	if CheckPassword("wrong", hash) {
		t.Error("Wrong password accepted")
	}
}

func TestGenerateAPIKey(t *testing.T) {
	key, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}
	if !strings.HasPrefix(key, "qt_") {
		t.Errorf("Expected qt_ prefix, got %q", key)
	}
	if len(key) != 3+64 {
		t.Errorf("Expected 32-byte hex key, got length %d", len(key))
	}

	other, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("Second GenerateAPIKey failed: %v", err)
	}
	if key == other {
		t.Error("API keys must be unique")
	}
}

func TestGenerateID(t *testing.T) {
	id, err := GenerateID()
	if err != nil {
		t.Fatalf("GenerateID failed: %v", err)
	}
	if len(id) != 32 {
		t.Errorf("Expected 16-byte hex ID, got length %d", len(id))
	}
}
