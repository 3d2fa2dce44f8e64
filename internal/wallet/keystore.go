package wallet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"filippo.io/age"
	"filippo.io/age/armor"

	cferr "github.com/mrz1836/coinfund/pkg/errors"
)

const (
	keystoreFilePermissions = 0o600
	keystoreDirPermissions  = 0o750
)

// keystorePayload is what gets encrypted.
type keystorePayload struct {
	Mnemonic  string    `json:"mnemonic"`
	CreatedAt time.Time `json:"created_at"`
}

// Keystore is an armored age file holding the wallet mnemonic, encrypted
// to a scrypt passphrase recipient.
type Keystore struct {
	path       string
	workFactor int
}

// NewKeystore returns a keystore at path.
func NewKeystore(path string) *Keystore {
	return &Keystore{path: path}
}

// WithWorkFactor overrides the scrypt work factor (log2 N). Zero keeps
// age's default. Lower values are only meant for tests.
func (k *Keystore) WithWorkFactor(logN int) *Keystore {
	k.workFactor = logN
	return k
}

// Path returns the keystore file path.
func (k *Keystore) Path() string {
	return k.path
}

// Exists reports whether the keystore file is present.
func (k *Keystore) Exists() bool {
	_, err := os.Stat(k.path)
	return err == nil
}

// Create encrypts mnemonic with password and writes a new keystore.
// An existing keystore is never overwritten.
func (k *Keystore) Create(mnemonic string, password []byte) error {
	if err := ValidateMnemonic(mnemonic); err != nil {
		return err
	}
	if k.Exists() {
		return cferr.WithDetails(cferr.ErrKeystoreExists, map[string]string{"path": k.path})
	}

	plaintext, err := json.Marshal(keystorePayload{
		Mnemonic:  NormalizeMnemonicInput(mnemonic),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	defer zero(plaintext)

	ciphertext, err := k.encrypt(plaintext, string(password))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(k.path), keystoreDirPermissions); err != nil {
		return fmt.Errorf("creating keystore directory: %w", err)
	}

	// O_EXCL keeps a concurrent init from clobbering the file.
	f, err := os.OpenFile(k.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, keystoreFilePermissions)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return cferr.WithDetails(cferr.ErrKeystoreExists, map[string]string{"path": k.path})
		}
		return fmt.Errorf("creating keystore: %w", err)
	}
	if _, err := f.Write(ciphertext); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing keystore: %w", err)
	}
	return f.Close()
}

// Unlock decrypts the keystore and returns the mnemonic.
func (k *Keystore) Unlock(password []byte) (string, error) {
	// #nosec G304 -- keystore path comes from config
	data, err := os.ReadFile(k.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", cferr.WithDetails(cferr.ErrKeystoreNotFound, map[string]string{"path": k.path})
		}
		return "", err
	}

	plaintext, err := decrypt(data, string(password))
	if err != nil {
		return "", cferr.WithCause(cferr.ErrDecryptionFailed, err)
	}
	defer zero(plaintext)

	var payload keystorePayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return "", cferr.WithCause(cferr.ErrDecryptionFailed, err)
	}
	return payload.Mnemonic, nil
}

func (k *Keystore) encrypt(plaintext []byte, password string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if k.workFactor > 0 {
		recipient.SetWorkFactor(k.workFactor)
	}

	buf := &bytes.Buffer{}
	aw := armor.NewWriter(buf)
	w, err := age.Encrypt(aw, recipient)
	if err != nil {
		return nil, fmt.Errorf("initializing encryption: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing encrypted data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}
	if err := aw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing armor: %w", err)
	}
	return buf.Bytes(), nil
}

func decrypt(ciphertext []byte, password string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(armor.NewReader(bytes.NewReader(ciphertext)), identity)
	if err != nil {
		return nil, fmt.Errorf("initializing decryption: %w", err)
	}
	return io.ReadAll(r)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
