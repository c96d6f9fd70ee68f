package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/pflag"

	"github.com/AaronLay10/SentientStage/internal/api"
	"github.com/AaronLay10/SentientStage/internal/config"
	"github.com/AaronLay10/SentientStage/internal/events"
	"github.com/AaronLay10/SentientStage/internal/mqtt"
	"github.com/AaronLay10/SentientStage/internal/orchestrator"
	"github.com/AaronLay10/SentientStage/internal/storage"
	"github.com/AaronLay10/SentientStage/internal/storage/postgres"
	"github.com/AaronLay10/SentientStage/internal/storage/sqlite"
	"github.com/AaronLay10/SentientStage/internal/version"
)

type LogLine struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Event     string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func logEvent(level, event, msg string, fields map[string]interface{}) {
	line := LogLine{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Event:     event,
		Message:   msg,
		Fields:    fields,
	}
	b, _ := json.Marshal(line)
	fmt.Println(string(b))
}

// startupError pairs a failed startup step with its cause.
type startupError struct {
	msg string
	err error
}

func (e *startupError) Error() string { return e.msg + ": " + e.err.Error() }
func (e *startupError) Unwrap() error { return e.err }

func fail(msg string, err error) error {
	return &startupError{msg: msg, err: err}
}

// openStore is swapped out in tests.
var openStore = openConfiguredStore

func openConfiguredStore(cfg *config.ExperienceConfig) (storage.Store, error) {
	switch cfg.StorageDriver() {
	case "sqlite":
		return sqlite.Open(cfg.StoragePath(), cfg.Experience.ID)
	case "postgres":
		return postgres.New(cfg.Storage.DSN, cfg.Experience.ID)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver())
	}
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		msg, cause := "orchestrator failed", err
		var se *startupError
		if errors.As(err, &se) {
			msg, cause = se.msg, se.err
		}
		logEvent("error", "system.error", msg, map[string]interface{}{"error": cause.Error()})
		os.Exit(1)
	}
}

// run starts the orchestrator and blocks until SIGINT or SIGTERM. Resources
// opened before a failed step are released before it returns.
func run(args []string) error {
	defaultConfig := os.Getenv("SENTIENT_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "experiences/_template/experience.yaml"
	}
	flags := pflag.NewFlagSet("orchestrator", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", defaultConfig, "path to experience.yaml")
	autoStart := flags.Bool("autostart", false, "start a session as soon as the engine is up")
	requireMQTT := flags.Bool("require-mqtt", false, "report not ready while the broker is unreachable")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return fail("invalid flags", err)
	}

	hostname, _ := os.Hostname()
	logEvent("info", "system.startup", "orchestrator starting", map[string]interface{}{
		"service":  "orchestrator",
		"hostname": hostname,
		"pid":      os.Getpid(),
		"version":  version.Version,
	})

	cfg, err := config.LoadExperienceConfig(*configPath)
	if err != nil {
		return fail("failed to load experience.yaml", err)
	}
	config.ApplyEnvOverrides(cfg)

	store, err := openStore(cfg)
	if err != nil {
		return fail("failed to open event store", err)
	}
	if store != nil {
		events.SetStore(store)
		defer func() {
			events.SetStore(nil)
			_ = store.Close()
		}()
	}
	api.SetStoreState(store != nil, store == nil)

	graphPath := cfg.Experience.SceneGraph
	if graphPath != "" && !filepath.IsAbs(graphPath) {
		graphPath = filepath.Join(filepath.Dir(*configPath), graphPath)
	}
	graph, err := orchestrator.LoadExperienceGraph(graphPath)
	if err != nil {
		return fail("failed to load scene graph", err)
	}

	settings := orchestrator.SettingsFromConfig(cfg)
	topics := cfg.Topics.WithDefaults()

	client := mqtt.NewClient(cfg.MQTTURL(), "sentient-stage-"+cfg.Experience.ID)
	defer client.Disconnect()
	registry := mqtt.NewActorRegistry()
	subscriber := mqtt.NewActorSubscriber(client, registry)
	specs := orchestrator.ActorSpecs(graph, settings.Movement)

	feed := mqtt.NewPositionFeed(cfg.PlayerMaxAge())

	// Runs on every (re)connect: the broker keeps no subscriptions across a
	// clean session.
	client.OnStateChange(func(up bool) {
		api.SetMQTTState(up, !*requireMQTT)
		if !up {
			subscriber.ClearSubscriptions()
			return
		}
		if err := client.Subscribe(topics.Registration, subscriber.RegistrationHandler(specs)); err != nil {
			logEvent("warn", "device.error", "registration subscribe failed", map[string]interface{}{"error": err.Error()})
		}
		if err := feed.Subscribe(client, topics.RigCamera, topics.RigOrigin); err != nil {
			logEvent("warn", "device.error", "rig position subscribe failed", map[string]interface{}{"error": err.Error()})
		}
		_ = subscriber.SubscribeAll()
	})

	api.SetMQTTState(false, !*requireMQTT)
	if err := client.Connect(); err != nil {
		if *requireMQTT {
			return fail("mqtt broker unavailable", err)
		}
		logEvent("warn", "device.error", "mqtt broker unavailable, retrying in background", map[string]interface{}{
			"broker": client.URL(),
			"error":  err.Error(),
		})
	}

	candidates := []orchestrator.PlayerCandidate{
		{Name: "rig_camera", Source: feed.Source(topics.RigCamera)},
		{Name: "rig_origin", Source: feed.Source(topics.RigOrigin)},
	}
	if p, ok := cfg.PlayerFallback(); ok {
		candidates = append(candidates, orchestrator.PlayerCandidate{
			Name:   "fallback",
			Source: orchestrator.StaticSource{Position: mgl64.Vec3(p)},
		})
	}

	dispatcher := orchestrator.NewCueDispatcher(client, registry, topics.HUD)
	engine := orchestrator.NewEngine(graph, settings, cfg.TickInterval(), orchestrator.EngineDeps{
		Player:   orchestrator.NewPlayerTable(candidates...),
		UI:       dispatcher,
		Animator: dispatcher,
		Poses:    dispatcher,
	})

	if err := api.InitAuth(); err != nil {
		return fail("failed to resolve API credentials", err)
	}
	if err := api.InitTLS(); err != nil {
		return fail("invalid TLS configuration", err)
	}
	api.InitMetrics()
	api.SetExperienceName(cfg.Experience.Name)
	api.SetController(engine)
	srv, err := api.Start(cfg.UIPort())
	if err != nil {
		return fail("failed to start API", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = engine.Run(ctx)
	}()
	api.SetOrchestratorReady(true)

	if *autoStart {
		engine.Start()
	}

	<-ctx.Done()
	api.SetOrchestratorReady(false)
	<-done

	engine.End()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	events.CloseAllSubscribers()

	events.Emit("info", "system.shutdown", "orchestrator stopped", nil)
	logEvent("info", "system.shutdown", "orchestrator stopped", map[string]interface{}{
		"ticks": engine.Ticks(),
	})
	return nil
}
