package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"authgate/internal/auth"
	"authgate/internal/config"
	"authgate/internal/database"
	"authgate/internal/metrics"
	"authgate/internal/models"
	"authgate/internal/router"
	"authgate/internal/store"
	"authgate/internal/sweeper"
	"authgate/internal/token"
	"authgate/internal/util"

	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()

	// load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(level)
	}

	// init database
	db, err := database.Init(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	// run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := store.New(db)

	// bootstrap the initial superuser, if configured and absent
	if err := bootstrapSuperuser(ctx, s, cfg, log); err != nil {
		log.Fatalf("bootstrap superuser: %v", err)
	}

	m := metrics.New()
	issuer := token.NewIssuer(cfg.JWT.Secret, cfg.JWT.TTL())
	gate := auth.NewGate(s, issuer, cfg.Auth.AllowMultiSessions).
		WithObserver(func(outcome string) {
			m.AuthDecisions.WithLabelValues(outcome).Inc()
		})

	// the revocation sweep runs for the lifetime of the process, interval
	// pinned to the token TTL so no revoked token outlives two cycles
	sw := sweeper.New(s, issuer.TTL(), log).
		WithObserver(func(swept int64, err error) {
			if err != nil {
				m.SweepErrors.Inc()
				return
			}
			m.SweptTokens.Add(float64(swept))
		})
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sw.Run(ctx)
	}()

	r := router.SetupRouter(cfg, s, gate, m, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		log.WithField("addr", addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("run server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
	<-sweepDone
}

// bootstrapSuperuser creates the configured superuser when no user with
// that name exists yet. Re-running at every start is harmless.
func bootstrapSuperuser(ctx context.Context, s *store.Store, cfg *config.Config, log *logrus.Logger) error {
	su := cfg.Superuser
	if su.Username == "" || su.Password == "" {
		return nil
	}
	if _, err := s.UserByName(ctx, su.Username); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hasher := util.NewBcryptHasher(cfg.Auth.BcryptCost)
	hash, err := hasher.Hash(su.Password)
	if err != nil {
		return err
	}
	user := models.User{
		Username:     su.Username,
		FirstName:    su.FirstName,
		LastName:     su.LastName,
		Email:        su.Email,
		PasswordHash: hash,
		IsSuperuser:  true,
	}
	if err := s.CreateUser(ctx, &user); err != nil && !errors.Is(err, store.ErrDuplicate) {
		return err
	}
	log.WithField("user", su.Username).Info("superuser bootstrapped")
	return nil
}
