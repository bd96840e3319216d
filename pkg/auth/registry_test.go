package auth

import (
	"encoding/json"
	"errors"
	"testing"
)

type mockValidator struct{}

func (m *mockValidator) Validate(secret string) (*Claims, error) {
	if secret == "valid" {
		return &Claims{Subject: "test-user"}, nil
	}
	return nil, errors.New("invalid secret")
}

func TestRegistry(t *testing.T) {
	RegisterProvider("mock", func(config json.RawMessage) (Validator, error) {
		return &mockValidator{}, nil
	})

	found := false
	for _, p := range ListProviders() {
		if p == "mock" {
			found = true
			break
		}
	}
	if !found {
		t.Error("mock provider not found in registry")
	}

	v, err := NewValidator(ProviderConfig{Type: "mock", Config: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatalf("failed to create validator: %v", err)
	}
	claims, err := v.Validate("valid")
	if err != nil {
		t.Fatalf("expected valid secret: %v", err)
	}
	if claims.Subject != "test-user" {
		t.Errorf("subject = %q", claims.Subject)
	}
	if _, err := v.Validate("invalid"); err == nil {
		t.Error("expected error for invalid secret")
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	if _, err := NewValidator(ProviderConfig{Type: "nope"}); err == nil {
		t.Fatal("expected error for unknown provider type")
	}
}
