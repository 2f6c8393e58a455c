// Command ledgerquery runs one gateway query and prints the result as JSON.
//
//	ledgerquery -channel mychannel -chaincode userman -fcn Write -args user1 -user appUser -org Org1 -data hello
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/geocoder89/ledgerauth/internal/config"
	"github.com/geocoder89/ledgerauth/internal/db"
	"github.com/geocoder89/ledgerauth/internal/ledger"
	"github.com/geocoder89/ledgerauth/internal/observability"
	"github.com/geocoder89/ledgerauth/internal/queue/redisclient"
	"github.com/geocoder89/ledgerauth/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	var (
		channel   = flag.String("channel", "mychannel", "channel name")
		chaincode = flag.String("chaincode", "userman", "chaincode name")
		fcn       = flag.String("fcn", ledger.FcnGetUser, "GetUser, Read or Write")
		args      = flag.String("args", "", "comma separated chaincode arguments")
		user      = flag.String("user", "", "wallet identity to query as")
		org       = flag.String("org", "Org1", "organization of the identity")
		data      = flag.String("data", "", "data stored by Write")
	)
	flag.Parse()

	if err := run(ledger.Request{
		Channel:   *channel,
		Chaincode: *chaincode,
		Args:      splitArgs(*args),
		Function:  *fcn,
		Username:  *user,
		Org:       *org,
		Data:      *data,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "ledgerquery:", err)
		os.Exit(1)
	}
}

func run(req ledger.Request) error {
	if req.Username == "" {
		return errors.New("-user is required")
	}

	cfg := config.LoadShared()
	log := observability.NewLogger(cfg.Env, "ledgerquery")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DBURL, "ledgerquery")
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	queue := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queue.Close()

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)
	if cfg.PushgatewayURL != "" {
		defer func() {
			pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := observability.PushMetrics(pushCtx, cfg.PushgatewayURL, "ledgerquery", reg); err != nil {
				log.Warn("metrics push failed", "err", err)
			}
		}()
	}

	svc := ledger.NewService(
		ledger.Config{
			Profiles: ledger.Profiles{
				ConfigDir:   cfg.Ledger.ConfigDir,
				WalletDir:   cfg.Ledger.WalletDir,
				AsLocalhost: cfg.Ledger.AsLocalhost,
			},
			PermissionTx:    cfg.Ledger.PermissionTx,
			ConnectTimeout:  cfg.Ledger.ConnectTimeout,
			EvaluateTimeout: cfg.Ledger.EvaluateTimeout,
		},
		ledger.NewQueueRegistrar(queue),
		ledger.FabricDialer{EvaluateTimeout: cfg.Ledger.EvaluateTimeout},
		postgres.NewRecordsRepo(pool, prom),
		log,
		ledger.WithObserver(prom),
	)

	res, err := svc.Query(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func splitArgs(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
