package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"go.vocdoni.io/dvote/log"

	"github.com/vocdoni/prediction-tally/crypto/ethereum"
	"github.com/vocdoni/prediction-tally/fhe"
	"github.com/vocdoni/prediction-tally/service"
	"github.com/vocdoni/prediction-tally/storage"
	"github.com/vocdoni/prediction-tally/tally"
)

func main() {
	datadir := flag.String("datadir", "./predictiond-data", "data directory for the key-value store")
	dbType := flag.String("dbtype", db.TypePebble, "key-value store backend")
	host := flag.String("host", "0.0.0.0", "API host to listen on")
	port := flag.Int("port", 9095, "API port to listen on")
	logLevel := flag.String("loglevel", "info", "log level (debug, info, warn, error)")
	flag.Parse()
	log.Init(*logLevel, "stdout", nil)

	database, err := metadb.New(*dbType, *datadir)
	if err != nil {
		log.Fatalf("could not open database: %v", err)
	}
	stg := storage.New(database)

	coproc, err := fhe.New()
	if err != nil {
		log.Fatalf("could not initialize the encrypted-value engine: %v", err)
	}

	// The engine operates on ciphertext handles under its own ephemeral
	// identity, regenerated on every start.
	signer := ethereum.NewSignKeys()
	if err := signer.Generate(); err != nil {
		log.Fatalf("could not generate the engine identity: %v", err)
	}
	engine := tally.New(stg, coproc, signer.Address())
	log.Infow("tally engine ready", "address", signer.Address().Hex())

	apiService := service.NewAPI(stg, engine, coproc, *host, *port)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := apiService.Start(ctx); err != nil {
		log.Fatalf("could not start the API service: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
	apiService.Stop()
}
