package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "auto-ticketing"

// Keys under which secrets can be stored instead of the config file
const (
	KeyMailboxPassword = "mailbox-password"
	KeySendGridAPIKey  = "sendgrid-api-key"
	KeySMTPPassword    = "smtp-password"
)

// Source looks up secrets by key
type Source interface {
	Get(key string) (string, error)
}

// Keyring reads secrets from the operating system keyring
type Keyring struct {
	open func() (keyring.Keyring, error)
}

// NewKeyring returns a Source backed by the system keyring
func NewKeyring() *Keyring {
	return &Keyring{open: openKeyring}
}

func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/auto-ticketing/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("auto-ticketing-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a secret by key
func (k *Keyring) Get(key string) (string, error) {
	ring, err := k.open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a secret by key
func (k *Keyring) Set(key, value string) error {
	ring, err := k.open()
	if err != nil {
		return err
	}

	if err := ring.Set(keyring.Item{Key: key, Data: []byte(value)}); err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Resolve returns current when it is set, otherwise the secret stored under key.
// A missing keyring entry is not an error: the empty string is returned.
func Resolve(src Source, key, current string) (string, error) {
	if current != "" || src == nil {
		return current, nil
	}

	v, err := src.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}
