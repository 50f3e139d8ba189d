package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"tally/internal/core/version"
	"tally/internal/modkit"
	"tally/internal/modkit/module"
	"tally/internal/modkit/repokit"
	"tally/internal/platform/config"
	perr "tally/internal/platform/errors"
	"tally/internal/platform/logger"
	"tally/internal/platform/metrics"
	"tally/internal/platform/metrics/setup"
	"tally/internal/platform/store"
	"tally/internal/services/ingest/domain"
	ingestmod "tally/internal/services/ingest/module"

	"github.com/google/uuid"
)

const job = "tally-ingest"

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func main() {
	os.Exit(perr.ExitCodeOf(run()))
}

func run() error {
	var (
		fFile   = flag.String("file", "", "usage file to ingest (.csv or .csv.gz); defaults to CORE_INGEST_FILE")
		fDryRun = flag.Bool("dry-run", false, "clean and export rejects without writing to the store")
		fEnv    = flag.String("env", ".env", "dotenv file loaded before reading config")
	)
	flag.Parse()

	if err := config.LoadDotEnv(*fEnv); err != nil {
		return err
	}
	logger.Init(logger.FromEnv())
	l := logger.Named(job)
	bi := version.Info(job)
	l.Info().Str("version", bi.Version).Str("commit", bi.Commit).Str("built", bi.Date).Msg("starting")

	// Surface flags to modules that read FromConfig
	mustSetEnv("CORE_INGEST_FILE", *fFile)
	if *fDryRun {
		mustSetEnv("CORE_INGEST_DRY_RUN", "1")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithRun(ctx, uuid.NewString())

	root := config.New()
	flush, err := setup.Install(metrics.ConfigFromEnv(root), job)
	if err != nil {
		l.Error().Err(err).Msg("metrics setup failed")
		return err
	}
	defer flush()

	st, err := store.Open(ctx, store.ConfigFromEnv(root, job), store.WithLogger(*l))
	if err != nil {
		l.Error().Err(err).Msg("store.Open failed")
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	repokit.MustGuard(ctx, st)

	im := ingestmod.New(modkit.FromStore(st, root, job))
	runner := module.MustPortsOf[domain.RunnerPort](im)

	rep, err := runner.Run(ctx, im.Options().File)
	if err != nil {
		logger.C(ctx).Error().Err(err).
			Str("code", perr.CodeOf(err).String()).
			Int("chunks_done", rep.Chunks).
			Msg("ingest failed")
		return err
	}
	return nil
}
