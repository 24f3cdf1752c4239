// Command statord runs the scheduling loop: it polls every registered
// model for rows due a check, advances or defers them, and periodically
// sweeps expired terminal rows.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/statorhq/stator/emit"
	"github.com/statorhq/stator/internal/example"
	"github.com/statorhq/stator/model"
	"github.com/statorhq/stator/runner"
	"github.com/statorhq/stator/store"
)

// Exit codes: 0 graceful, 1 registry/config error or a fatal runner
// error, 2 watchdog self-kill
// (raised from within runner/watchdog.go, not returned here), 130
// interrupted.
const (
	exitOK        = 0
	exitConfig    = 1
	exitInterrupt = 130
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := logrus.StandardLogger()

	flags := pflag.NewFlagSet("statord", pflag.ContinueOnError)
	var cfg Config
	cfg.Bind(flags)
	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return exitOK
		}
		fmt.Fprintln(os.Stderr, err)
		return exitConfig
	}
	cfg.BindArgs(flags)
	if err := cfg.LoadFile(); err != nil {
		logger.WithError(err).Error("config")
		return exitConfig
	}
	cfg.ApplyDefaults()

	buffered := emit.NewBufferedEmitter()
	registry, err := buildRegistry(cfg, logger, buffered)
	if err != nil {
		logger.WithError(err).Error("building model registry")
		return exitConfig
	}
	if len(registry) == 0 {
		logger.Error("no models registered after applying --exclude and positional labels")
		return exitConfig
	}

	runnerCfg := runner.DefaultConfig()
	runnerCfg.Concurrency = cfg.Concurrency
	runnerCfg.TaskDeadline = cfg.TaskDeadline
	runnerCfg.LivenessFile = cfg.LivenessFile
	runnerCfg.RunFor = cfg.RunFor

	rnr := runner.New(runnerCfg, registry, runner.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = rnr.Run(ctx)
	logBufferedSummary(logger, registry, buffered)
	switch {
	case err == nil:
		return exitOK
	case err == context.Canceled:
		logger.Info("shutting down on signal")
		return exitInterrupt
	default:
		logger.WithError(err).Error("runner stopped")
		return exitConfig
	}
}

// logBufferedSummary reports how many events each model accumulated in
// buffered during the run, a cheap way to confirm the in-memory event
// history is actually being populated without standing up an inspection
// endpoint.
func logBufferedSummary(logger *logrus.Logger, registry []runner.ModelRunner, buffered *emit.BufferedEmitter) {
	for _, mr := range registry {
		n := len(buffered.History(mr.Label()))
		logger.WithFields(logrus.Fields{"model": mr.Label(), "buffered_events": n}).Info("event history")
	}
}

// excluded reports whether label appears in cfg.Exclude.
func excluded(cfg Config, label string) bool {
	for _, x := range cfg.Exclude {
		if x == label {
			return true
		}
	}
	return false
}

// wanted reports whether label should run: excluded always wins, and a
// non-empty positional label list is an allow-list that everything else
// must be absent from.
func wanted(cfg Config, label string) bool {
	if excluded(cfg, label) {
		return false
	}
	if len(cfg.Labels) == 0 {
		return true
	}
	for _, l := range cfg.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// buildRegistry constructs the runnable model list. The example jobs model
// is the only one wired today; a real deployment's main.go would list its
// own tables here the same way, each backed by a store.RowStore. Every
// model's events go to both logger (operational visibility) and buffered
// (in-memory history for debugging) through an emit.MultiEmitter.
func buildRegistry(cfg Config, logger *logrus.Logger, buffered *emit.BufferedEmitter) ([]runner.ModelRunner, error) {
	var registry []runner.ModelRunner

	if wanted(cfg, "jobs") {
		jobGraph, err := example.NewJobGraph()
		if err != nil {
			return nil, err
		}
		jobStore := store.NewMemoryStore[*example.Job](nil)
		jobModel := model.New("jobs", jobGraph, jobStore,
			model.WithLogger[*example.Job](logger),
			model.WithEmitter[*example.Job](emit.NewMultiEmitter(emit.NewLogEmitter(logger), buffered)),
		)
		registry = append(registry, model.NewAdapter(jobModel))
	}

	return registry, nil
}
