package wallet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/coinfund/internal/fileutil"
)

// State is what the wallet remembers between runs: whether the user
// granted access, which account is selected, the active chain, and the
// public addresses so account queries do not need the passphrase.
type State struct {
	Connected bool      `yaml:"connected"`
	Selected  int       `yaml:"selected"`
	ChainID   int64     `yaml:"chain_id"`
	Accounts  []Account `yaml:"accounts"`
}

// LoadState reads the state file. A missing file yields an empty state.
func LoadState(path string) (*State, error) {
	// #nosec G304 -- state path is derived from the keystore path
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &State{}, nil
	}
	if err != nil {
		return nil, err
	}

	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing wallet state %s: %w", path, err)
	}
	if st.Selected < 0 || st.Selected >= len(st.Accounts) {
		st.Selected = 0
	}
	return &st, nil
}

// Save writes the state file.
func (s *State) Save(path string) error {
	if path == "" {
		return nil
	}
	return fileutil.WriteYAML(path, s, keystoreFilePermissions)
}

// StatePath returns the state file path that sits next to a keystore.
func StatePath(keystorePath string) string {
	return filepath.Join(filepath.Dir(keystorePath), "wallet-state.yaml")
}
