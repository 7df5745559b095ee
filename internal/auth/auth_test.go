package auth

import (
	"net/http/httptest"
	"testing"
)

func TestTokenRoundTrip(t *testing.T) {
	a := New("test-secret", 60)

	token, err := a.GenerateToken("0xAlice", "alice")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Address != "0xAlice" {
		t.Errorf("Address = %q, want 0xAlice", claims.Address)
	}
	if claims.Username != "alice" {
		t.Errorf("Username = %q, want alice", claims.Username)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	a := New("secret-a", 60)
	b := New("secret-b", 60)

	token, err := a.GenerateToken("0xAlice", "alice")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := b.ValidateToken(token); err == nil {
		t.Error("ValidateToken accepted a token signed with another secret")
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	a := New("test-secret", -1)
	token, err := a.GenerateToken("0xAlice", "alice")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := a.ValidateToken(token); err == nil {
		t.Error("ValidateToken accepted an expired token")
	}
}

func TestExtractClaims(t *testing.T) {
	a := New("test-secret", 60)
	token, _ := a.GenerateToken("0xAlice", "alice")

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	claims := a.ExtractClaims(r)
	if claims == nil || claims.Address != "0xAlice" {
		t.Errorf("ExtractClaims = %+v, want claims for 0xAlice", claims)
	}
}

func TestExtractClaimsAbsentOrMalformed(t *testing.T) {
	a := New("test-secret", 60)

	r := httptest.NewRequest("GET", "/", nil)
	if claims := a.ExtractClaims(r); claims != nil {
		t.Errorf("ExtractClaims without header = %+v, want nil", claims)
	}

	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	if claims := a.ExtractClaims(r); claims != nil {
		t.Errorf("ExtractClaims with Basic auth = %+v, want nil", claims)
	}

	r.Header.Set("Authorization", "Bearer not-a-jwt")
	if claims := a.ExtractClaims(r); claims != nil {
		t.Errorf("ExtractClaims with garbage token = %+v, want nil", claims)
	}
}
