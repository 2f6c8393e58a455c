package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoCryptoMaterial is permanent: retrying will not make the files appear.
var ErrNoCryptoMaterial = errors.New("ledger: no crypto material for user")

// CryptoEnroller fills wallets from an MSP crypto tree laid out like the
// Fabric test network (organizations/peerOrganizations/<org>.<domain>/users/...).
type CryptoEnroller struct {
	Profiles  Profiles
	CryptoDir string
	Domain    string
}

func (e CryptoEnroller) orgDomain(org string) string {
	domain := e.Domain
	if domain == "" {
		domain = "example.com"
	}
	return strings.ToLower(org) + "." + domain
}

// mspDir returns the msp directory for username, falling back to the org
// admin's when isAdmin is set and the user has no material of their own.
func (e CryptoEnroller) mspDir(username, org string, isAdmin bool) (string, error) {
	orgDomain := e.orgDomain(org)
	users := filepath.Join(e.CryptoDir, "peerOrganizations", orgDomain, "users")

	candidates := []string{username + "@" + orgDomain}
	if isAdmin {
		candidates = append(candidates, "Admin@"+orgDomain)
	}

	for _, c := range candidates {
		dir := filepath.Join(users, c, "msp")
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w: %s in %s", ErrNoCryptoMaterial, username, orgDomain)
}

func (e CryptoEnroller) Enroll(ctx context.Context, req EnrollRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := CheckName(req.Username); err != nil {
		return err
	}
	if err := CheckName(req.Org); err != nil {
		return err
	}

	wallet := FileWallet{Dir: e.Profiles.WalletPath(req.Org)}
	if wallet.Exists(req.Username) {
		return nil
	}

	ccp, err := e.Profiles.Load(req.Org)
	if err != nil {
		return err
	}
	orgProfile, ok := ccp.org(req.Org)
	if !ok {
		return fmt.Errorf("organization %q not in connection profile", req.Org)
	}

	dir, err := e.mspDir(req.Username, req.Org, req.IsAdmin)
	if err != nil {
		return err
	}

	cert, err := firstFile(filepath.Join(dir, "signcerts"))
	if err != nil {
		return fmt.Errorf("read signcert: %w", err)
	}
	key, err := firstFile(filepath.Join(dir, "keystore"))
	if err != nil {
		return fmt.Errorf("read private key: %w", err)
	}

	return wallet.Put(req.Username, NewX509Identity(orgProfile.MSPID, string(cert), string(key)))
}

// firstFile reads the lexically first regular file in dir.
func firstFile(dir string) ([]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNoCryptoMaterial, dir)
	}
	sort.Strings(names)

	return os.ReadFile(filepath.Join(dir, names[0]))
}
