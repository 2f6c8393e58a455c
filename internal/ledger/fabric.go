package ledger

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
)

// Dialer opens a gateway session for one identity.
type Dialer interface {
	Dial(ctx context.Context, peer Peer, id Identity) (Session, error)
}

type Session interface {
	Contract(channel, chaincode string) Contract
	Close() error
}

type Contract interface {
	Evaluate(ctx context.Context, name string, args ...string) ([]byte, error)
}

// FabricDialer connects through the Fabric Gateway service on a peer.
type FabricDialer struct {
	EvaluateTimeout time.Duration
}

func (d FabricDialer) Dial(ctx context.Context, peer Peer, id Identity) (Session, error) {
	if id.MSPID == "" {
		id.MSPID = peer.MSPID
	}

	cert, err := identity.CertificateFromPEM([]byte(id.Credentials.Certificate))
	if err != nil {
		return nil, fmt.Errorf("parse identity certificate: %w", err)
	}

	x509ID, err := identity.NewX509Identity(id.MSPID, cert)
	if err != nil {
		return nil, fmt.Errorf("create x509 identity: %w", err)
	}

	key, err := identity.PrivateKeyFromPEM([]byte(id.Credentials.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse identity private key: %w", err)
	}

	sign, err := identity.NewPrivateKeySign(key)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	conn, err := dialPeer(ctx, peer)
	if err != nil {
		return nil, err
	}

	opts := []client.ConnectOption{
		client.WithSign(sign),
		client.WithClientConnection(conn),
	}
	if d.EvaluateTimeout > 0 {
		opts = append(opts, client.WithEvaluateTimeout(d.EvaluateTimeout))
	}

	gw, err := client.Connect(x509ID, opts...)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect gateway: %w", err)
	}

	return &fabricSession{gw: gw, conn: conn}, nil
}

// dialPeer opens a TLS gRPC connection and waits until it is ready or ctx ends.
func dialPeer(ctx context.Context, peer Peer) (*grpc.ClientConn, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(peer.TLSCACert) {
		return nil, fmt.Errorf("peer %s: no usable tls ca certificate", peer.Name)
	}

	creds := credentials.NewClientTLSFromCert(pool, peer.HostOverride)

	conn, err := grpc.NewClient("dns:///"+peer.Endpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create grpc connection to %s: %w", peer.Endpoint, err)
	}

	conn.Connect()
	for {
		state := conn.GetState()
		if state == connectivity.Ready {
			return conn, nil
		}
		if !conn.WaitForStateChange(ctx, state) {
			conn.Close()
			return nil, fmt.Errorf("connect to peer %s: %w", peer.Endpoint, ctx.Err())
		}
	}
}

type fabricSession struct {
	gw   *client.Gateway
	conn *grpc.ClientConn
}

func (s *fabricSession) Contract(channel, chaincode string) Contract {
	return fabricContract{c: s.gw.GetNetwork(channel).GetContract(chaincode)}
}

func (s *fabricSession) Close() error {
	return errors.Join(s.gw.Close(), s.conn.Close())
}

type fabricContract struct {
	c *client.Contract
}

func (c fabricContract) Evaluate(ctx context.Context, name string, args ...string) ([]byte, error) {
	return c.c.EvaluateWithContext(ctx, name, client.WithArguments(args...))
}
