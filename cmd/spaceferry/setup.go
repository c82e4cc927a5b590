package main

import (
	"github.com/spaceferry/spaceferry/internal/cma"
	"github.com/spaceferry/spaceferry/internal/config"
	"github.com/spaceferry/spaceferry/internal/driver"
	"github.com/spaceferry/spaceferry/internal/ratelimit"
	"github.com/spaceferry/spaceferry/internal/state"
)

// loadConfig reads the configuration file named by the --config flag.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// buildSession wires the target-space client to the rate gate: the gate
// admits every call, and the client feeds remaining-budget headers back
// so the gate can clamp when the budget is shared.
func buildSession(cfg *config.Config) (*cma.Client, *ratelimit.Limiter) {
	limiter := ratelimit.New(ratelimit.Options{
		Enabled:           cfg.RateLimit.Enabled,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		RequestsPerHour:   cfg.RateLimit.RequestsPerHour,
		Verbose:           cfg.RateLimit.Verbose,
	})

	client := cma.NewClient(cfg.Target.SpaceID, cfg.Target.EnvironmentID, cfg.Target.AccessToken)
	if cfg.Target.Host != "" {
		client = client.WithBaseURL(cfg.Target.Host)
	}
	client.OnSecondRemaining = limiter.ObserveSecondRemaining

	return client, limiter
}

// buildDriver assembles the migration driver from the configuration.
func buildDriver(cfg *config.Config) *driver.Driver {
	client, limiter := buildSession(cfg)
	store := state.NewStore(cfg.StatePath())

	return driver.New(client, limiter, store, driver.Options{
		OutputDir:             cfg.OutputDir,
		UploadAssets:          cfg.Import.UploadAssets,
		SkipContentPublishing: cfg.Import.SkipContentPublishing,
		SkipExisting:          cfg.Import.SkipExisting,
		MaxRetries:            cfg.Import.MaxRetries,
		RetryDelay:            cfg.Import.RetryDelay,
		DelayBetweenBatches:   cfg.Import.DelayBetweenBatches,
		PollInterval:          cfg.Import.PollInterval,
		MaxPollAttempts:       cfg.Import.MaxPollAttempts,
	})
}
