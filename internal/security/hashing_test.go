package security

import (
	"testing"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(4)
	hash, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" {
		t.Fatal("Hash returned empty")
	}
	if hash == "secret123" {
		t.Fatal("Hash returned plaintext")
	}
	if !h.Compare("secret123", hash) {
		t.Fatal("Compare should match")
	}
}

func TestHasher_CompareWrongSecret(t *testing.T) {
	h := NewHasher(4)
	hash, _ := h.Hash("secret123")
	if h.Compare("secret124", hash) {
		t.Fatal("Compare with wrong secret should fail")
	}
	if h.Compare("", hash) {
		t.Fatal("Compare with empty secret should fail")
	}
}

func TestHasher_CompareMalformedHash(t *testing.T) {
	h := NewHasher(4)
	if h.Compare("secret123", "not-a-bcrypt-hash") {
		t.Fatal("Compare against malformed hash should fail")
	}
}

func TestHasher_Cost(t *testing.T) {
	h := NewHasher(12)
	if h.Cost != 12 {
		t.Errorf("Cost want 12, got %d", h.Cost)
	}
	h0 := NewHasher(0)
	if h0.Cost < 4 {
		t.Errorf("zero cost should be clamped to at least MinCost, got %d", h0.Cost)
	}
	hMax := NewHasher(99)
	if hMax.Cost != 31 {
		t.Errorf("cost above max should clamp to 31, got %d", hMax.Cost)
	}
}
