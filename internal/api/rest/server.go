package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/fortuna/nbaduck/internal/logging"
)

// Server serves a read-only view of the store's tables.
type Server struct {
	addr    string
	server  *http.Server
	handler *Handler
}

// NewServer creates the report API server listening on addr.
func NewServer(addr string, tables TableReader, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	handler := NewHandler(tables)

	return &Server{
		addr:    addr,
		handler: handler,
		server: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(handler, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// NewRouter registers the routes and middleware.
func NewRouter(handler *Handler, logger logrus.FieldLogger) *mux.Router {
	router := mux.NewRouter()

	// Apply middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggingMiddleware(logger))

	// Health check
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/tables", handler.ListTables).Methods("GET")
	api.HandleFunc("/tables/{name}", handler.GetTable).Methods("GET")

	return router
}

// Start starts the server and blocks until it stops.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
