package auth

import (
	"bytes"
	"testing"
)

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		name         string
		masterSecret []byte
		purpose      string
		wantErr      bool
	}{
		{name: "valid derivation", masterSecret: []byte("this-is-a-secure-master-secret-for-testing"), purpose: "test-purpose-v1"},
		{name: "empty master secret", masterSecret: []byte{}, purpose: "test-purpose-v1", wantErr: true},
		{name: "nil master secret", masterSecret: nil, purpose: "test-purpose-v1", wantErr: true},
		{name: "empty purpose string is allowed", masterSecret: []byte("test-secret"), purpose: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := DeriveKey(tt.masterSecret, tt.purpose)
			if tt.wantErr {
				if err != ErrInvalidMasterSecret {
					t.Errorf("DeriveKey() error = %v, want %v", err, ErrInvalidMasterSecret)
				}
				return
			}
			if err != nil {
				t.Fatalf("DeriveKey() unexpected error: %v", err)
			}
			if len(key) != DerivedKeyLength {
				t.Errorf("DeriveKey() key length = %d, want %d", len(key), DerivedKeyLength)
			}
		})
	}
}

func TestDeriveSessionKey(t *testing.T) {
	secret := []byte("shared-master-secret")

	key1, err := DeriveSessionKey(secret)
	if err != nil {
		t.Fatalf("DeriveSessionKey() failed: %v", err)
	}
	key2, _ := DeriveSessionKey(secret)
	if !bytes.Equal(key1, key2) {
		t.Error("DeriveSessionKey() is not deterministic")
	}

	other, _ := DeriveKey(secret, "some-other-purpose")
	if bytes.Equal(key1, other) {
		t.Error("session key should differ from keys derived for other purposes")
	}
	if bytes.Equal(key1, secret) {
		t.Error("session key must not be the raw secret")
	}
}
