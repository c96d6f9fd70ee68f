// Command api serves the read-only operator API (health, history, live
// events) without running an engine, for reviewing stored sessions.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/AaronLay10/SentientStage/internal/api"
	"github.com/AaronLay10/SentientStage/internal/config"
	"github.com/AaronLay10/SentientStage/internal/events"
	"github.com/AaronLay10/SentientStage/internal/storage"
	"github.com/AaronLay10/SentientStage/internal/storage/postgres"
	"github.com/AaronLay10/SentientStage/internal/storage/sqlite"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	defaultConfig := os.Getenv("SENTIENT_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "experiences/_template/experience.yaml"
	}
	flags := pflag.NewFlagSet("api", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", defaultConfig, "path to experience.yaml")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.LoadExperienceConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load experience.yaml: %w", err)
	}
	config.ApplyEnvOverrides(cfg)

	var store storage.Store
	switch cfg.StorageDriver() {
	case "sqlite":
		store, err = sqlite.Open(cfg.StoragePath(), cfg.Experience.ID)
	case "postgres":
		store, err = postgres.New(cfg.Storage.DSN, cfg.Experience.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to open event store: %w", err)
	}
	if store != nil {
		events.SetStore(store)
		defer func() {
			events.SetStore(nil)
			_ = store.Close()
		}()
	}

	if err := api.InitAuth(); err != nil {
		return fmt.Errorf("failed to resolve API credentials: %w", err)
	}
	if err := api.InitTLS(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}
	api.InitMetrics()
	api.SetExperienceName(cfg.Experience.Name)
	api.SetStoreState(store != nil, false)
	api.SetMQTTState(false, true)
	api.SetOrchestratorReady(true)

	if err := api.ListenAndServe(cfg.UIPort()); err != nil {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}
