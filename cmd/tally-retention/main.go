package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

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
	"tally/internal/services/retention/domain"
	retentionmod "tally/internal/services/retention/module"

	"github.com/google/uuid"
)

const job = "tally-retention"

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
		fDays   = flag.Int("days", 0, "delete facts older than N days; defaults to CORE_RETENTION_DELETE_AFTER_DAYS")
		fMaxAge = flag.Duration("max-age", 0, "delete facts older than this duration; overrides -days")
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

	if *fDays < 0 || *fMaxAge < 0 {
		err := perr.InvalidArgf("retention: -days and -max-age must not be negative")
		l.Error().Err(err).Msg("bad flags")
		return err
	}
	if *fDays > 0 {
		mustSetEnv("CORE_RETENTION_DELETE_AFTER_DAYS", strconv.Itoa(*fDays))
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

	rm := retentionmod.New(modkit.FromStore(st, root, job))
	purger := module.MustPortsOf[domain.PurgerPort](rm)

	maxAge := rm.Options().MaxAge()
	if *fMaxAge > 0 {
		maxAge = *fMaxAge
	}

	rep, err := purger.Purge(ctx, maxAge)
	if err != nil {
		logger.C(ctx).Error().Err(err).Str("code", perr.CodeOf(err).String()).Msg("retention failed")
		return err
	}
	if rep.Skipped {
		logger.C(ctx).Info().Msg("another sweep holds the lease; nothing to do")
	}
	logger.C(ctx).Info().Dur("max_age", maxAge).Dur("elapsed", rep.Elapsed.Round(time.Millisecond)).Msg("retention done")
	return nil
}
