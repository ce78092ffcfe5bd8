package credential

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
)

func arrayKeyring(items ...keyring.Item) *Keyring {
	ring := keyring.NewArrayKeyring(items)
	return &Keyring{open: func() (keyring.Keyring, error) { return ring, nil }}
}

func TestResolve(t *testing.T) {
	src := arrayKeyring(keyring.Item{Key: KeySMTPPassword, Data: []byte("relay-secret")})

	tests := []struct {
		name    string
		key     string
		current string
		want    string
	}{
		{name: "Configured value wins", key: KeySMTPPassword, current: "from-config", want: "from-config"},
		{name: "Falls back to keyring", key: KeySMTPPassword, current: "", want: "relay-secret"},
		{name: "Missing key is empty", key: KeySendGridAPIKey, current: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(src, tt.key, tt.current)
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolve_NilSource(t *testing.T) {
	got, err := Resolve(nil, KeyMailboxPassword, "")
	if err != nil || got != "" {
		t.Errorf("Resolve(nil) = %q, %v; want empty, nil", got, err)
	}
}

func TestKeyring_SetThenGet(t *testing.T) {
	k := arrayKeyring()
	if err := k.Set(KeyMailboxPassword, "app-password"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	got, err := k.Get(KeyMailboxPassword)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != "app-password" {
		t.Errorf("Get() = %q, want %q", got, "app-password")
	}
}

func TestKeyring_OpenFailure(t *testing.T) {
	k := &Keyring{open: func() (keyring.Keyring, error) { return nil, errors.New("no backend") }}
	if _, err := Resolve(k, KeyMailboxPassword, ""); err == nil {
		t.Error("Expected an error when the keyring cannot be opened")
	}
}
