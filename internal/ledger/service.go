package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/ledgerauth/internal/domain/record"
)

// RecordStore is the slice of the record repository the policy touches.
type RecordStore interface {
	Insert(ctx context.Context, name, data string) (record.Record, error)
	Latest(ctx context.Context, name string) (record.Record, error)
}

// WalletStore resolves wallet identities per organization.
type WalletStore interface {
	Get(org, username string) (Identity, error)
}

// OrgWallets maps every organization onto its FileWallet under Profiles.WalletDir.
type OrgWallets struct {
	Profiles Profiles
}

func (w OrgWallets) Get(org, username string) (Identity, error) {
	return FileWallet{Dir: w.Profiles.WalletPath(org)}.Get(username)
}

type Observer interface {
	ObserveLedger(fcn, outcome string, d time.Duration)
}

type Config struct {
	Profiles Profiles
	// PermissionTx is the chaincode transaction evaluated to fetch the
	// caller's permission for Read and Write.
	PermissionTx    string
	ConnectTimeout  time.Duration
	EvaluateTimeout time.Duration
}

type Service struct {
	cfg       Config
	wallets   WalletStore
	registrar Registrar
	dialer    Dialer
	records   RecordStore
	log       *slog.Logger
	obs       Observer
}

type Option func(*Service)

func WithObserver(o Observer) Option { return func(s *Service) { s.obs = o } }

func NewService(cfg Config, registrar Registrar, dialer Dialer, records RecordStore, log *slog.Logger, opts ...Option) *Service {
	if cfg.PermissionTx == "" {
		cfg.PermissionTx = FcnGetUser
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.EvaluateTimeout <= 0 {
		cfg.EvaluateTimeout = 5 * time.Second
	}

	s := &Service{
		cfg:       cfg,
		wallets:   OrgWallets{Profiles: cfg.Profiles},
		registrar: registrar,
		dialer:    dialer,
		records:   records,
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query evaluates req.Function against the chaincode as req.Username. The
// gateway session never outlives the call.
func (s *Service) Query(ctx context.Context, req Request) (res Result, err error) {
	start := time.Now()
	defer func() {
		outcome := outcomeOf(res, err)
		if s.obs != nil {
			s.obs.ObserveLedger(req.Function, outcome, time.Since(start))
		}
		if err != nil {
			s.log.ErrorContext(ctx, "ledger_query", "fcn", req.Function, "user", req.Username, "org", req.Org, "outcome", outcome, "err", err)
			return
		}
		s.log.InfoContext(ctx, "ledger_query", "fcn", req.Function, "user", req.Username, "org", req.Org, "outcome", outcome)
	}()

	switch req.Function {
	case FcnGetUser, FcnRead, FcnWrite:
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownFunction, req.Function)
	}
	if len(req.Args) == 0 || req.Args[0] == "" {
		return Result{}, ErrMissingArgs
	}
	if err := CheckName(req.Username); err != nil {
		return Result{}, err
	}
	if err := CheckName(req.Org); err != nil {
		return Result{}, err
	}

	ccp, err := s.cfg.Profiles.Load(req.Org)
	if err != nil {
		return Result{}, err
	}
	peer, err := ccp.GatewayPeer(req.Org, s.cfg.Profiles.AsLocalhost)
	if err != nil {
		return Result{}, err
	}

	id, err := s.wallets.Get(req.Org, req.Username)
	if err != nil {
		if !errors.Is(err, ErrIdentityNotFound) {
			return Result{}, err
		}

		if err := s.registrar.Register(ctx, req.Username, req.Org, true); err != nil {
			return Result{}, err
		}
		return Result{}, ErrIdentityPending
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	session, err := s.dialer.Dial(dialCtx, peer, id)
	cancel()
	if err != nil {
		return Result{}, fmt.Errorf("open gateway: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			s.log.WarnContext(ctx, "ledger_session_close_failed", "err", cerr)
		}
	}()

	contract := session.Contract(req.Channel, req.Chaincode)

	if req.Function == FcnGetUser {
		payload, err := s.evaluate(ctx, contract, FcnGetUser, req.Args[0])
		if err != nil {
			return Result{}, err
		}
		return Result{Function: req.Function, Payload: payload, Allowed: true}, nil
	}

	payload, err := s.evaluate(ctx, contract, s.cfg.PermissionTx, req.Args[0])
	if err != nil {
		return Result{}, err
	}

	var ledgerUser struct {
		Permission Permission `json:"permission"`
	}
	if err := json.Unmarshal(payload, &ledgerUser); err != nil {
		return Result{}, fmt.Errorf("decode %s result: %w", s.cfg.PermissionTx, err)
	}

	res = Result{
		Function:   req.Function,
		Payload:    payload,
		Permission: ledgerUser.Permission,
	}

	return s.apply(ctx, req, res)
}

// apply enforces the permission code and touches the record table only when
// the code allows it.
func (s *Service) apply(ctx context.Context, req Request, res Result) (Result, error) {
	switch {
	case req.Function == FcnWrite && res.Permission.CanWrite():
		rec, err := s.records.Insert(ctx, req.Username, req.Data)
		if err != nil {
			return Result{}, fmt.Errorf("write record: %w", err)
		}
		res.Allowed = true
		res.Message = MsgWriteOK
		res.Record = &rec

	case req.Function == FcnRead && res.Permission.CanRead():
		rec, err := s.records.Latest(ctx, req.Username)
		if err != nil && !errors.Is(err, record.ErrNotFound) {
			return Result{}, fmt.Errorf("read record: %w", err)
		}
		res.Allowed = true
		res.Message = MsgReadOK
		if err == nil {
			res.Data = rec.Data
			res.Record = &rec
		}

	default:
		res.Allowed = false
		res.Message = MsgDenied
	}

	return res, nil
}

func (s *Service) evaluate(ctx context.Context, c Contract, name, arg string) (json.RawMessage, error) {
	evalCtx, cancel := context.WithTimeout(ctx, s.cfg.EvaluateTimeout)
	defer cancel()

	raw, err := c.Evaluate(evalCtx, name, arg)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", name, err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("evaluate %s: result is not JSON", name)
	}
	return json.RawMessage(raw), nil
}

func outcomeOf(res Result, err error) string {
	switch {
	case errors.Is(err, ErrIdentityPending):
		return "pending"
	case err != nil:
		return "error"
	case !res.Allowed:
		return "denied"
	default:
		return "ok"
	}
}
