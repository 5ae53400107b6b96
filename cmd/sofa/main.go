// Command sofa runs the replication gateway with a demo provider setup: a
// multi-instance "user" type and a singleton "groups" type over plain SQL
// tables. Real deployments supply their own RegisterFunc.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/faxioman/sofa/internal/config"
	"github.com/faxioman/sofa/internal/document"
	"github.com/faxioman/sofa/internal/registry"
	"github.com/faxioman/sofa/internal/services"
)

func registerProviders(db *sql.DB, b *registry.Builder) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			email    TEXT,
			active   INTEGER NOT NULL DEFAULT 1
		);
		CREATE TABLE IF NOT EXISTS groups (
			name TEXT PRIMARY KEY,
			role TEXT
		);
	`); err != nil {
		return err
	}
	if err := b.Register("user", document.NewRowProvider(db, "users", "username", []string{"email", "active"})); err != nil {
		return err
	}
	return b.Register("groups", document.NewSingletonProvider(db, "groups", "name", []string{"role"}))
}

func main() {
	initRevisions := flag.Bool("init-revisions", false, "reset the change log and seed a revision per existing entity")
	flag.Parse()

	cfg := config.LoadConfig()
	mgr := services.NewManager(cfg, services.Options{
		RunAPI:        true,
		InitRevisions: *initRevisions,
	}, registerProviders)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := mgr.Init(ctx); err != nil {
		log.Fatalf("init failed: %v", err)
	}
	if err := mgr.Start(ctx); err != nil {
		log.Fatalf("start failed: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	mgr.Shutdown(shutdownCtx)
}
