package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/api"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/config"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/database"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/detection"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/engagement"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/engine"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/logging"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/metrics"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/notifications"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/payload"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/policy"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logging.Init(cfg.System.LogDir, &cfg.System.LogRotation, cfg.System.LogLevel, cfg.System.Debug); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: file logging disabled: %v\n", err)
	}
	defer logging.Close()

	logging.Info("Honeycomb %s starting", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agent := policy.NewAgent(
		policy.LoadOrDefault(cfg.Policy.TablePath),
		policy.WithEpsilon(cfg.Epsilon()),
		policy.WithEngagedAfter(cfg.Engine.EngagedAfter),
	)

	opts := []engine.Option{
		engine.WithAgent(agent),
		engine.WithGenerator(payload.NewGenerator(generatorOptions(cfg)...)),
		engine.WithTracker(engagement.NewTracker(cfg.Engine.EngagedAfter)),
		engine.WithHistoryCapacity(cfg.Engine.HistoryCapacity),
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logging.Error("Database unavailable, decisions will not be persisted: %v", err)
	} else {
		defer db.Close()
		opts = append(opts, engine.WithSinks(database.NewDecisionSink(db)))
	}

	if cfg.Notifications.Enabled {
		manager := notifications.NewManager(&cfg.Notifications)
		defer manager.Close()
		opts = append(opts, engine.WithSinks(manager))
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New()
		opts = append(opts, engine.WithSinks(collector))
	}

	eng := engine.New(opts...)

	serverOpts := []api.ServerOption{api.WithCORS(cfg.Server.EnableCORS)}
	if collector != nil {
		collector.TrackState(eng)
		serverOpts = append(serverOpts, api.WithMetricsHandler(cfg.Metrics.Path, collector.Handler()))
	}

	if cfg.Policy.WatchTable && cfg.Policy.TablePath != "" {
		watcher, err := policy.NewTableWatcher(cfg.Policy.TablePath, agent)
		if err != nil {
			logging.Warn("Table hot-reload disabled: %v", err)
		} else {
			go watcher.Run(ctx)
		}
	}

	server := api.NewHoneypotServer(eng, serverOpts...)
	err = server.ListenAndServe(ctx, cfg.Server.ListenAddr,
		time.Duration(cfg.Server.ReadTimeoutSeconds)*time.Second,
		time.Duration(cfg.Server.WriteTimeoutSeconds)*time.Second,
	)

	logging.Info("Waiting for pending sinks")
	eng.Wait()
	return err
}

// generatorOptions applies the response section: validated message pool
// overrides and the delay switch.
func generatorOptions(cfg *config.Config) []payload.Option {
	var opts []payload.Option

	for name, messages := range cfg.Response.Messages {
		severity, err := detection.ParseSeverity(name)
		if err != nil {
			logging.Warn("Ignoring messages for unknown severity %q", name)
			continue
		}
		if ok, problems := payload.ValidateMessages(severity.String(), messages); !ok {
			for _, p := range problems {
				logging.Warn("Ignoring message override: %s", p)
			}
			continue
		}
		opts = append(opts, payload.WithMessages(severity, messages))
		logging.Info("Using %d custom %s messages", len(messages), severity)
	}

	if cfg.Response.DisableDelay {
		logging.Warn("Response delay disabled")
		opts = append(opts, payload.NoDelay())
	}
	return opts
}
