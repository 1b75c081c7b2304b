package main

import (
	"context"
	"fmt"
	"io"
	"log"

	"taskboard/internal/api"
	"taskboard/internal/config"
	"taskboard/internal/database"
	"taskboard/internal/handler"
	"taskboard/internal/session"
	"taskboard/internal/storage"
)

// app is the wired client: one session store shared by every command and
// by the view server.
type app struct {
	cfg    *config.Config
	kv     storage.Store
	db     *database.DB
	client *api.Client
	sess   *session.Store
	out    io.Writer
}

// newApp opens the configured session backend and wires the API client to
// the session's token.
func newApp(cfg *config.Config, out io.Writer) (*app, error) {
	a := &app{cfg: cfg, out: out}

	switch cfg.Session.Backend {
	case config.SessionMemory:
		a.kv = storage.NewMemoryStore()
	case config.SessionPostgres:
		db, err := database.Open(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.db = db
		if err := migrate(db, cfg.MigrationsPath); err != nil {
			a.Close()
			return nil, err
		}
		a.kv = storage.NewPostgresStore(db.DB)
	default:
		path := cfg.Session.FilePath
		if path == "" {
			p, err := storage.DefaultFilePath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		a.kv = storage.NewFileStore(path)
	}

	a.wire(api.WithTimeout(cfg.API.Timeout))
	return a, nil
}

// wire builds the client and session over a.kv. The client reads the token
// from the session on every request.
func (a *app) wire(opts ...api.Option) {
	var sess *session.Store
	opts = append(opts, api.WithTokenSource(api.TokenSourceFunc(func() string {
		return sess.Token()
	})))
	a.client = api.NewClient(a.cfg.API.BaseURL, opts...)
	sess = session.New(a.kv, a.client)
	a.sess = sess
}

func (a *app) deps() *handler.Deps {
	deps := &handler.Deps{Config: a.cfg, Session: a.sess, Service: a.client}
	if a.db != nil {
		deps.DB = a.db
	}
	return deps
}

// bootstrap restores the persisted session. A storage failure leaves the
// session anonymous and is only logged.
func (a *app) bootstrap(ctx context.Context) {
	if err := a.sess.Bootstrap(ctx); err != nil {
		log.Printf("failed to restore session: %v", err)
	}
}

func (a *app) Close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		log.Printf("error closing database connection: %v", err)
	}
}

func migrate(db *database.DB, path string) error {
	m := db.Migrator(path)
	if err := m.Up(); err != nil {
		return err
	}
	version, dirty, err := m.Version()
	switch {
	case err != nil:
		log.Printf("WARNING: failed to get migration version: %v", err)
	case dirty:
		log.Printf("WARNING: session schema is dirty at version %d - manual intervention is required", version)
	}
	return nil
}
