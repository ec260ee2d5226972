// Package main starts the federation service process lifecycle.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mvoicu/dansport/internal/identity"
	"github.com/mvoicu/dansport/internal/platform/config"
	"github.com/mvoicu/dansport/internal/platform/otel"
	server "github.com/mvoicu/dansport/internal/services/federation/app"
)

type envConfig struct {
	HTTPAddr      string `env:"DANSPORT_HTTP_ADDR" envDefault:":8080"`
	DBPath        string `env:"DANSPORT_DB_PATH" envDefault:"dansport.db"`
	BlobDir       string `env:"DANSPORT_BLOB_DIR" envDefault:"blobs"`
	PublicBaseURL string `env:"DANSPORT_PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	SMTPAddr      string `env:"DANSPORT_SMTP_ADDR"`
	SMTPFrom      string `env:"DANSPORT_SMTP_FROM"`
}

func main() {
	log.SetPrefix("[FEDERATION] ")

	var cfg envConfig
	if err := config.ParseEnv(&cfg); err != nil {
		config.Exitf("load configuration: %v", err)
	}
	verifier, err := identity.LoadVerifierConfigFromEnv(nil)
	if err != nil {
		config.Exitf("load identity configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Setup(ctx, "dansport-federation")
	if err != nil {
		config.Exitf("setup tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("shutdown tracing: %v", err)
		}
	}()

	srv, err := server.NewServer(ctx, server.Config{
		HTTPAddr:      cfg.HTTPAddr,
		DBPath:        cfg.DBPath,
		BlobDir:       cfg.BlobDir,
		PublicBaseURL: cfg.PublicBaseURL,
		SMTPAddr:      cfg.SMTPAddr,
		SMTPFrom:      cfg.SMTPFrom,
		TokenIssuer:   verifier.Issuer,
		TokenAudience: verifier.Audience,
		TokenKey:      verifier.Key,
		Logger:        log.Default(),
	})
	if err != nil {
		config.Exitf("initialize server: %v", err)
	}
	defer srv.Close()

	log.Printf("listening on %s", cfg.HTTPAddr)
	if err := srv.ListenAndServe(ctx); err != nil {
		config.Exitf("serve: %v", err)
	}
}
