package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrIdentityNotFound = errors.New("ledger: identity not in wallet")
	// ErrInvalidName is permanent: the name would resolve outside the wallet
	// or profile directory.
	ErrInvalidName = errors.New("ledger: invalid user or organization name")
)

// CheckName rejects user and organization names that are not a single local
// path element, since both end up in wallet and profile file names.
func CheckName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || !filepath.IsLocal(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Identity is an X.509 wallet entry, stored as <label>.id in the same JSON
// layout fabric-network file wallets use.
type Identity struct {
	Credentials struct {
		Certificate string `json:"certificate"`
		PrivateKey  string `json:"privateKey"`
	} `json:"credentials"`
	MSPID   string `json:"mspId"`
	Type    string `json:"type"`
	Version int    `json:"version"`
}

func NewX509Identity(mspID, certPEM, keyPEM string) Identity {
	var id Identity
	id.Credentials.Certificate = certPEM
	id.Credentials.PrivateKey = keyPEM
	id.MSPID = mspID
	id.Type = "X.509"
	id.Version = 1
	return id
}

type FileWallet struct {
	Dir string
}

func (w FileWallet) path(label string) string {
	return filepath.Join(w.Dir, label+".id")
}

func (w FileWallet) Get(label string) (Identity, error) {
	if err := CheckName(label); err != nil {
		return Identity{}, err
	}

	raw, err := os.ReadFile(w.path(label))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Identity{}, ErrIdentityNotFound
		}
		return Identity{}, fmt.Errorf("read wallet identity %s: %w", label, err)
	}

	var id Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return Identity{}, fmt.Errorf("parse wallet identity %s: %w", label, err)
	}
	if id.Type != "" && id.Type != "X.509" {
		return Identity{}, fmt.Errorf("wallet identity %s: unsupported type %q", label, id.Type)
	}

	return id, nil
}

// Put writes the identity atomically so a concurrent Get never sees a partial file.
func (w FileWallet) Put(label string, id Identity) error {
	if err := CheckName(label); err != nil {
		return err
	}
	if err := os.MkdirAll(w.Dir, 0o700); err != nil {
		return fmt.Errorf("create wallet dir: %w", err)
	}

	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(w.Dir, label+".*.tmp")
	if err != nil {
		return fmt.Errorf("write wallet identity %s: %w", label, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write wallet identity %s: %w", label, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write wallet identity %s: %w", label, err)
	}

	return os.Rename(tmp.Name(), w.path(label))
}

func (w FileWallet) Exists(label string) bool {
	if CheckName(label) != nil {
		return false
	}
	_, err := os.Stat(w.path(label))
	return err == nil
}
