package wallet

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
)

// BasePath is the BIP44 prefix for Ethereum external accounts.
const BasePath = "m/44'/60'/0'/0"

// Account is one derived address.
type Account struct {
	Index   uint32         `json:"index" yaml:"index"`
	Path    string         `json:"path" yaml:"path"`
	Address common.Address `json:"address" yaml:"address"`
}

// DeriveKey derives the private key at m/44'/60'/0'/0/index from seed.
func DeriveKey(seed []byte, index uint32) (*ecdsa.PrivateKey, error) {
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("creating master key: %w", err)
	}

	for _, step := range []uint32{
		bip32.FirstHardenedChild + 44,
		bip32.FirstHardenedChild + 60,
		bip32.FirstHardenedChild,
		0,
		index,
	} {
		if key, err = key.NewChildKey(step); err != nil {
			return nil, fmt.Errorf("deriving %s/%d: %w", BasePath, index, err)
		}
	}

	return crypto.ToECDSA(key.Key)
}

// DeriveAccounts derives the first n accounts from seed together with their keys.
func DeriveAccounts(seed []byte, n int) ([]Account, []*ecdsa.PrivateKey, error) {
	accounts := make([]Account, 0, n)
	keys := make([]*ecdsa.PrivateKey, 0, n)
	for i := range uint32(max(n, 0)) { //nolint:gosec // n is a small configured count
		k, err := DeriveKey(seed, i)
		if err != nil {
			return nil, nil, err
		}
		accounts = append(accounts, Account{
			Index:   i,
			Path:    fmt.Sprintf("%s/%d", BasePath, i),
			Address: crypto.PubkeyToAddress(k.PublicKey),
		})
		keys = append(keys, k)
	}
	return accounts, keys, nil
}
