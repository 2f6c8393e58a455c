package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfiles_Paths(t *testing.T) {
	p := Profiles{ConfigDir: "/etc/ledger", WalletDir: "/var/wallets"}

	assert.Equal(t, "/etc/ledger/connection-org1.json", p.ProfilePath("Org1"))
	assert.Equal(t, "/var/wallets/org1-wallet", p.WalletPath("Org1"))
}

func TestConnectionProfile_GatewayPeer(t *testing.T) {
	dir := t.TempDir()
	p := Profiles{ConfigDir: dir}
	require.NoError(t, os.WriteFile(p.ProfilePath("Org1"), []byte(testProfile), 0o644))

	ccp, err := p.Load("Org1")
	require.NoError(t, err)

	peer, err := ccp.GatewayPeer("org1", false)
	require.NoError(t, err)
	assert.Equal(t, "peer0.org1.example.com:7051", peer.Endpoint)
	assert.Equal(t, "Org1MSP", peer.MSPID)
	assert.Contains(t, string(peer.TLSCACert), "BEGIN CERTIFICATE")

	peer, err = ccp.GatewayPeer("Org1", true)
	require.NoError(t, err)
	assert.Equal(t, "localhost:7051", peer.Endpoint)
}

func TestConnectionProfile_Errors(t *testing.T) {
	_, err := Profiles{ConfigDir: t.TempDir()}.Load("Org9")
	assert.Error(t, err)

	ccp := ConnectionProfile{Organizations: map[string]OrgProfile{"Org1": {MSPID: "Org1MSP"}}}
	_, err = ccp.GatewayPeer("Org1", true)
	assert.ErrorContains(t, err, "no peers")
}

func TestFileWallet_PutGet(t *testing.T) {
	w := FileWallet{Dir: filepath.Join(t.TempDir(), "org1-wallet")}

	_, err := w.Get("appUser")
	assert.ErrorIs(t, err, ErrIdentityNotFound)
	assert.False(t, w.Exists("appUser"))

	require.NoError(t, w.Put("appUser", NewX509Identity("Org1MSP", "CERT", "KEY")))

	id, err := w.Get("appUser")
	require.NoError(t, err)
	assert.Equal(t, "Org1MSP", id.MSPID)
	assert.Equal(t, "X.509", id.Type)
	assert.Equal(t, 1, id.Version)
	assert.Equal(t, "CERT", id.Credentials.Certificate)
	assert.Equal(t, "KEY", id.Credentials.PrivateKey)

	raw, err := os.ReadFile(filepath.Join(w.Dir, "appUser.id"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"mspId":"Org1MSP"`)
}

func TestFileWallet_RejectsUnknownType(t *testing.T) {
	w := FileWallet{Dir: t.TempDir()}
	require.NoError(t, os.WriteFile(filepath.Join(w.Dir, "hsm.id"), []byte(`{"type":"HSM-X.509"}`), 0o600))

	_, err := w.Get("hsm")
	assert.ErrorContains(t, err, "unsupported type")
}

func TestFileWallet_RejectsEscapingLabels(t *testing.T) {
	root := t.TempDir()
	w := FileWallet{Dir: filepath.Join(root, "org1-wallet")}

	for _, label := range []string{"../escaped", "a/b", `a\b`, "..", ""} {
		assert.ErrorIs(t, w.Put(label, NewX509Identity("Org1MSP", "CERT", "KEY")), ErrInvalidName, label)
		_, err := w.Get(label)
		assert.ErrorIs(t, err, ErrInvalidName, label)
		assert.False(t, w.Exists(label), label)
	}

	_, err := os.Stat(filepath.Join(root, "escaped.id"))
	assert.True(t, os.IsNotExist(err))

	_, err = Profiles{ConfigDir: root}.Load("../Org1")
	assert.ErrorIs(t, err, ErrInvalidName)
}
