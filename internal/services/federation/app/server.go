// Package server composes the federation service process.
package server

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mvoicu/dansport/internal/identity"
	"github.com/mvoicu/dansport/internal/platform/httpx"
	"github.com/mvoicu/dansport/internal/platform/timeouts"
	"github.com/mvoicu/dansport/internal/services/federation/api/web"
	"github.com/mvoicu/dansport/internal/services/federation/blob"
	"github.com/mvoicu/dansport/internal/services/federation/blob/fsblob"
	"github.com/mvoicu/dansport/internal/services/federation/domain/events"
	"github.com/mvoicu/dansport/internal/services/federation/domain/invites"
	"github.com/mvoicu/dansport/internal/services/federation/domain/pairs"
	"github.com/mvoicu/dansport/internal/services/federation/domain/participation"
	"github.com/mvoicu/dansport/internal/services/federation/domain/photos"
	"github.com/mvoicu/dansport/internal/services/federation/domain/results"
	"github.com/mvoicu/dansport/internal/services/federation/mail"
	mailsmtp "github.com/mvoicu/dansport/internal/services/federation/mail/smtp"
	"github.com/mvoicu/dansport/internal/services/federation/storage/sqlite"
)

// Config defines startup inputs for the federation service.
type Config struct {
	HTTPAddr      string
	DBPath        string
	BlobDir       string
	PublicBaseURL string
	SMTPAddr      string
	SMTPFrom      string
	TokenIssuer   string
	TokenAudience string
	TokenKey      ed25519.PublicKey
	Logger        *log.Logger
}

// Server hosts the federation HTTP surface and lifecycle.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	store      *sqlite.Store
}

// NewHandler builds the root handler over the provided store and blob store.
func NewHandler(cfg Config, store *sqlite.Store, blobs blob.Store) (http.Handler, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if blobs == nil {
		return nil, errors.New("blob store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	var mailer mail.Sender
	if strings.TrimSpace(cfg.SMTPAddr) != "" {
		sender, err := mailsmtp.New(cfg.SMTPAddr, cfg.SMTPFrom)
		if err != nil {
			return nil, fmt.Errorf("compose mail sender: %w", err)
		}
		mailer = sender
	}

	handlers := web.NewHandlers(
		events.NewService(store, nil, nil),
		pairs.NewService(store, nil, nil),
		participation.NewService(store, nil, nil),
		photos.NewService(store, blobs, logger, strings.TrimRight(cfg.PublicBaseURL, "/"), nil, nil),
		results.NewService(store, nil, nil),
		invites.NewService(store, mailer),
	)

	mux := http.NewServeMux()
	web.RegisterRoutes(mux, handlers)
	mux.HandleFunc("GET /blobs/{key...}", serveBlob(blobs))

	handler := httpx.Chain(mux,
		httpx.RecoverPanic(),
		httpx.RequestID(),
		identity.Middleware(identity.VerifierConfig{
			Issuer:   cfg.TokenIssuer,
			Audience: cfg.TokenAudience,
			Key:      cfg.TokenKey,
		}),
		httpx.RequestLogger(logger),
	)
	return otelhttp.NewHandler(handler, "federation"), nil
}

func serveBlob(blobs blob.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.PathValue("key"))
		if key == "" {
			http.NotFound(w, r)
			return
		}
		reader, err := blobs.Open(r.Context(), key)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer reader.Close()
		if _, err := io.Copy(w, reader); err != nil {
			return
		}
	}
}

// NewServer validates config, opens storage, and constructs the server.
func NewServer(_ context.Context, cfg Config) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	blobs, err := fsblob.New(cfg.BlobDir)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	handler, err := NewHandler(cfg, store, blobs)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("compose federation handler: %w", err)
	}
	return &Server{
		httpAddr: httpAddr,
		store:    store,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}, nil
}

// ListenAndServe serves HTTP traffic until context cancellation or server stop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("federation server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown federation http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve federation http: %w", err)
	}
}

// Close closes open server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
}
