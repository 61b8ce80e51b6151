// Package service wires the storage, the encrypted-value collaborator
// and the tally engine into long-running components.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/vocdoni/prediction-tally/api"
	"github.com/vocdoni/prediction-tally/fhe"
	"github.com/vocdoni/prediction-tally/storage"
	"github.com/vocdoni/prediction-tally/tally"
)

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	storage   *storage.Storage
	engine    *tally.Engine
	decryptor fhe.Decryptor
	api       *api.API
	mu        sync.Mutex
	cancel    context.CancelFunc
	host      string
	port      int
}

// NewAPI creates a new APIService instance.
func NewAPI(stg *storage.Storage, engine *tally.Engine, decryptor fhe.Decryptor, host string, port int) *APIService {
	return &APIService{
		storage:   stg,
		engine:    engine,
		decryptor: decryptor,
		host:      host,
		port:      port,
	}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		return fmt.Errorf("service already running")
	}

	_, as.cancel = context.WithCancel(ctx)

	var err error
	as.api, err = api.New(&api.APIConfig{
		Host:      as.host,
		Port:      as.port,
		Engine:    as.engine,
		Decryptor: as.decryptor,
	})
	if err != nil {
		as.cancel = nil
		return fmt.Errorf("failed to start API server: %w", err)
	}
	as.api.Start()

	return nil
}

// Stop halts the API server and releases the storage.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		as.cancel()
		as.cancel = nil
	}
	as.storage.Close()
}

// HostPort returns the host and port of the API server.
func (as *APIService) HostPort() (string, int) {
	return as.host, as.port
}
