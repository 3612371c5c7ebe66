package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/tobiasfw/sagan/internal/artifacts"
	"github.com/tobiasfw/sagan/internal/config"
	"github.com/tobiasfw/sagan/internal/control"
	"github.com/tobiasfw/sagan/internal/generator"
	"github.com/tobiasfw/sagan/internal/lifecycle"
	"github.com/tobiasfw/sagan/internal/normalize"
	"github.com/tobiasfw/sagan/internal/orchestrator"
	"github.com/tobiasfw/sagan/internal/orchestrator/policy"
	"github.com/tobiasfw/sagan/internal/scoring"
	"github.com/tobiasfw/sagan/internal/state"
	"github.com/tobiasfw/sagan/internal/tracker"
)

// pipeline bundles everything a command needs to drive the orchestrator.
type pipeline struct {
	orch    *orchestrator.Orchestrator
	db      *state.DB
	store   *artifacts.FSStore
	tracker tracker.Store
	signals *control.SignalWatcher
	policy  *policy.Config
}

// close releases pipeline resources.
func (p *pipeline) close() {
	if p.store != nil {
		p.store.Close()
	}
	if p.signals != nil {
		p.signals.Close()
	}
	if p.db != nil {
		p.db.Close()
	}
}

// trackerPath returns the local tracker file under the working directory.
func trackerPath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	return filepath.Join(cwd, ".sagan", "tracker.json"), nil
}

// buildPipeline wires the orchestrator from configuration. When
// withExecutor is false no generator client is created, which keeps
// read-only commands usable without an API key.
func buildPipeline(cfg *config.Config, withExecutor bool, projectFilter string, seedOverride int64) (*pipeline, error) {
	pol := policy.Default()
	if cfg.Pipeline.PolicyPath != "" {
		loaded, err := policy.LoadFile(cfg.Pipeline.PolicyPath)
		if err != nil {
			return nil, err
		}
		pol = loaded
	}

	dbPath := cfg.Store.DBPath
	if dbPath == "" {
		dbPath = state.DefaultPath()
	}
	db, err := state.Open(dbPath)
	if err != nil {
		return nil, err
	}

	store, err := artifacts.NewFSStore(cfg.Store.ArtifactRoot)
	if err != nil {
		db.Close()
		return nil, err
	}

	tpath, err := trackerPath()
	if err != nil {
		store.Close()
		db.Close()
		return nil, err
	}
	trk, err := tracker.NewFileStore(tpath)
	if err != nil {
		store.Close()
		db.Close()
		return nil, err
	}

	cwd, _ := os.Getwd()
	signals, err := control.NewSignalWatcher(cwd)
	if err != nil {
		store.Close()
		db.Close()
		return nil, err
	}

	var exec orchestrator.Executor
	if withExecutor {
		client, cerr := generator.NewClient(generator.ClientConfig{
			Model:         anthropic.Model(cfg.Anthropic.Model),
			APIKey:        cfg.Anthropic.APIKey,
			UseAWSBedrock: cfg.Anthropic.UseBedrock,
			AWSRegion:     cfg.Anthropic.AWSRegion,
			AWSProfile:    cfg.Anthropic.AWSProfile,
		})
		if cerr != nil {
			signals.Close()
			store.Close()
			db.Close()
			return nil, cerr
		}
		exec = orchestrator.NewGeneratorExecutor(client, store, normalize.DefaultRetryPolicy())
	}

	seed := seedOverride
	if seed == 0 {
		seed = cfg.Pipeline.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	orch, err := orchestrator.New(orchestrator.Options{
		Tracker:   trk,
		Artifacts: store,
		Engine:    scoring.NewEngine(db),
		Machine:   lifecycle.NewMachine(store, db),
		Executor:  exec,
		Signals:   signals,
		Policy:    pol,
		Seed:      seed,
		Logger:    orchestrator.NewDebugLoggerForDir(cwd),
	})
	if err != nil {
		signals.Close()
		store.Close()
		db.Close()
		return nil, err
	}
	if projectFilter != "" {
		orch.SetProjectFilter(projectFilter)
	}

	return &pipeline{
		orch:    orch,
		db:      db,
		store:   store,
		tracker: trk,
		signals: signals,
		policy:  pol,
	}, nil
}
