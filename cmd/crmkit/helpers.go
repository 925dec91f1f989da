package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/nebari-dev/crmkit/internal/cache"
	"github.com/nebari-dev/crmkit/internal/config"
	"github.com/nebari-dev/crmkit/internal/server"
	"github.com/nebari-dev/crmkit/internal/service"
	"github.com/nebari-dev/crmkit/internal/store"
)

// env bundles what the CLI commands need to talk to the database directly.
type env struct {
	cfg   *config.Config
	store *store.Store
	cache cache.Cache
	svc   *service.InstallationService
}

func (e *env) Close() {
	e.cache.Close()
	e.store.Close()
}

// openEnv opens the configured database and builds an installation service.
// The configured cache is used so that CLI changes invalidate entries a
// running server shares through valkey.
func openEnv() (*env, error) {
	cfg, database, err := server.Open()
	if err != nil {
		return nil, err
	}
	st := store.New(database)
	c, err := server.NewCache(cfg.Cache)
	if err != nil {
		st.Close()
		return nil, err
	}
	return &env{cfg: cfg, store: st, cache: c, svc: service.New(st, c)}, nil
}

func mustOpenEnv() *env {
	e, err := openEnv()
	if err != nil {
		exitWithError(err)
	}
	return e
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func parseCompanyID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid company id %q: %w", s, err)
	}
	return id, nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
