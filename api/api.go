package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.vocdoni.io/dvote/log"

	"github.com/vocdoni/prediction-tally/fhe"
	"github.com/vocdoni/prediction-tally/tally"
)

// APIConfig type represents the configuration for the API HTTP server.
// It includes the host, port, the tally engine and the decryptor used to
// reveal closed tallies.
type APIConfig struct {
	Host      string
	Port      int
	Engine    *tally.Engine
	Decryptor fhe.Decryptor
}

// API type represents the API HTTP server.
type API struct {
	router    *chi.Mux
	engine    *tally.Engine
	decryptor fhe.Decryptor
	host      string
	port      int
}

// New creates a new API instance with the given configuration and
// initializes its router. Call Start to begin serving.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Engine == nil {
		return nil, fmt.Errorf("missing tally engine")
	}
	if conf.Decryptor == nil {
		return nil, fmt.Errorf("missing decryptor")
	}
	a := &API{
		engine:    conf.Engine,
		decryptor: conf.Decryptor,
		host:      conf.Host,
		port:      conf.Port,
	}
	a.initRouter()
	return a, nil
}

// Start launches the HTTP server in the background.
func (a *API) Start() {
	go func() {
		log.Infow("starting API server", "host", a.host, "port", a.port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", a.host, a.port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", PredictionsEndpoint, "method", "POST")
	a.router.Post(PredictionsEndpoint, a.newPrediction)
	log.Infow("register handler", "endpoint", PredictionsEndpoint, "method", "GET")
	a.router.Get(PredictionsEndpoint, a.predictionList)
	log.Infow("register handler", "endpoint", PredictionEndpoint, "method", "GET")
	a.router.Get(PredictionEndpoint, a.prediction)
	log.Infow("register handler", "endpoint", PredictionCountsEndpoint, "method", "GET")
	a.router.Get(PredictionCountsEndpoint, a.predictionCounts)
	log.Infow("register handler", "endpoint", PredictionVotedEndpoint, "method", "GET")
	a.router.Get(PredictionVotedEndpoint, a.predictionVoted)
	log.Infow("register handler", "endpoint", PredictionCloseEndpoint, "method", "POST")
	a.router.Post(PredictionCloseEndpoint, a.closePrediction)
	log.Infow("register handler", "endpoint", PredictionResultsEndpoint, "method", "GET")
	a.router.Get(PredictionResultsEndpoint, a.predictionResults)
	log.Infow("register handler", "endpoint", VotesEndpoint, "method", "POST")
	a.router.Post(VotesEndpoint, a.newVote)
	log.Infow("register handler", "endpoint", EventsEndpoint, "method", "GET")
	a.router.Get(EventsEndpoint, a.events)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	// Register the API handlers
	a.registerHandlers()
}
