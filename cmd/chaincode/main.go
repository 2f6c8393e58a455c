package main

import (
	"log/slog"
	"os"

	"github.com/geocoder89/ledgerauth/internal/chaincode/userman"
	"github.com/geocoder89/ledgerauth/internal/observability"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

func main() {
	log := observability.NewLogger(os.Getenv("APP_ENV"), "userman-chaincode")

	chaincode, err := contractapi.NewChaincode(userman.New())
	if err != nil {
		log.Error("create userman chaincode", "err", err)
		os.Exit(1)
	}
	chaincode.Info.Title = "userman"
	chaincode.Info.Version = "0.0.1"

	// chaincode-as-a-service when CHAINCODE_SERVER_ADDRESS is set, otherwise
	// the peer launches and connects to us
	addr := os.Getenv("CHAINCODE_SERVER_ADDRESS")
	if addr == "" {
		if err := chaincode.Start(); err != nil {
			log.Error("start userman chaincode", "err", err)
			os.Exit(1)
		}
		return
	}

	server := &shim.ChaincodeServer{
		CCID:    os.Getenv("CHAINCODE_ID"),
		Address: addr,
		CC:      chaincode,
		TLSProps: shim.TLSProperties{
			Disabled: true,
		},
	}

	log.Info("chaincode server starting", slog.String("ccid", server.CCID), slog.String("addr", addr))
	if err := server.Start(); err != nil {
		log.Error("chaincode server stopped", "err", err)
		os.Exit(1)
	}
}
