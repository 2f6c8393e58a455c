package ledger

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
)

// ConnectionProfile is the subset of a Fabric common connection profile the
// gateway needs.
type ConnectionProfile struct {
	Name   string `json:"name"`
	Client struct {
		Organization string `json:"organization"`
	} `json:"client"`
	Organizations map[string]OrgProfile  `json:"organizations"`
	Peers         map[string]PeerProfile `json:"peers"`
}

type OrgProfile struct {
	MSPID string   `json:"mspid"`
	Peers []string `json:"peers"`
}

type PeerProfile struct {
	URL        string `json:"url"`
	TLSCACerts struct {
		PEM  string `json:"pem"`
		Path string `json:"path"`
	} `json:"tlsCACerts"`
	GRPCOptions map[string]any `json:"grpcOptions"`
}

// Peer is a resolved gateway endpoint.
type Peer struct {
	Name         string
	Endpoint     string
	TLSCACert    []byte
	HostOverride string
	MSPID        string
}

// Profiles locates connection profiles and wallets per organization.
type Profiles struct {
	ConfigDir   string
	WalletDir   string
	AsLocalhost bool
}

func (p Profiles) ProfilePath(org string) string {
	return filepath.Join(p.ConfigDir, "connection-"+strings.ToLower(org)+".json")
}

func (p Profiles) WalletPath(org string) string {
	return filepath.Join(p.WalletDir, strings.ToLower(org)+"-wallet")
}

func (p Profiles) Load(org string) (ConnectionProfile, error) {
	if err := CheckName(org); err != nil {
		return ConnectionProfile{}, err
	}
	path := p.ProfilePath(org)

	raw, err := os.ReadFile(path)
	if err != nil {
		return ConnectionProfile{}, fmt.Errorf("read connection profile %s: %w", path, err)
	}

	var ccp ConnectionProfile
	if err := json.Unmarshal(raw, &ccp); err != nil {
		return ConnectionProfile{}, fmt.Errorf("parse connection profile %s: %w", path, err)
	}

	return ccp, nil
}

// GatewayPeer picks the first peer listed for org. With asLocalhost the peer
// host is replaced by localhost, as for a network running in local containers.
func (ccp ConnectionProfile) GatewayPeer(org string, asLocalhost bool) (Peer, error) {
	orgProfile, ok := ccp.org(org)
	if !ok {
		return Peer{}, fmt.Errorf("organization %q not in connection profile", org)
	}
	if len(orgProfile.Peers) == 0 {
		return Peer{}, fmt.Errorf("organization %q lists no peers", org)
	}

	name := orgProfile.Peers[0]
	pp, ok := ccp.Peers[name]
	if !ok {
		return Peer{}, fmt.Errorf("peer %q not in connection profile", name)
	}

	endpoint := pp.URL
	if i := strings.Index(endpoint, "://"); i >= 0 {
		endpoint = endpoint[i+3:]
	}
	if asLocalhost {
		if _, port, err := net.SplitHostPort(endpoint); err == nil {
			endpoint = net.JoinHostPort("localhost", port)
		}
	}

	tlsCert := []byte(pp.TLSCACerts.PEM)
	if len(tlsCert) == 0 && pp.TLSCACerts.Path != "" {
		b, err := os.ReadFile(pp.TLSCACerts.Path)
		if err != nil {
			return Peer{}, fmt.Errorf("read tls ca cert for %s: %w", name, err)
		}
		tlsCert = b
	}

	override, _ := pp.GRPCOptions["ssl-target-name-override"].(string)
	if override == "" {
		override = name
	}

	return Peer{
		Name:         name,
		Endpoint:     endpoint,
		TLSCACert:    tlsCert,
		HostOverride: override,
		MSPID:        orgProfile.MSPID,
	}, nil
}

func (ccp ConnectionProfile) org(org string) (OrgProfile, bool) {
	if o, ok := ccp.Organizations[org]; ok {
		return o, true
	}
	for name, o := range ccp.Organizations {
		if strings.EqualFold(name, org) {
			return o, true
		}
	}
	if o, ok := ccp.Organizations[ccp.Client.Organization]; ok {
		return o, true
	}
	return OrgProfile{}, false
}
