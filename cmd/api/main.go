package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/andvari/socialcore/internal/activity"
	actrepo "github.com/andvari/socialcore/internal/activity/repo"
	"github.com/andvari/socialcore/internal/admin"
	"github.com/andvari/socialcore/internal/auth"
	authrepo "github.com/andvari/socialcore/internal/auth/repo"
	"github.com/andvari/socialcore/internal/identity"
	identityrepo "github.com/andvari/socialcore/internal/identity/repo"
	"github.com/andvari/socialcore/internal/profile"
	"github.com/andvari/socialcore/internal/router"
	"github.com/andvari/socialcore/internal/session"
	sessionrepo "github.com/andvari/socialcore/internal/session/repo"
	"github.com/andvari/socialcore/pkg/database"
	"github.com/andvari/socialcore/pkg/mail"
	"github.com/andvari/socialcore/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	_ = godotenv.Load()

	lg, err := utilities.InitLogger(utilities.LogConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting socialcore")

	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// repositories
	accountRepo := identityrepo.NewAccountRepo(db)
	activityRepo := actrepo.NewActivityRepo(db)
	sessionRepo := sessionrepo.NewSessionRepo(db)
	tokenRepo := authrepo.NewTokenRepo(db)

	// schema setup, ordered by foreign keys
	activitySvc := activity.NewService(db, activityRepo)
	identitySvc := identity.NewService(db, accountRepo, nil)
	profileSvc := profile.NewService(db, accountRepo, activitySvc)
	if err := accountRepo.EnsureTable(ctx); err != nil {
		sugar.Fatalf("accounts schema: %v", err)
	}
	if err := profileSvc.Profiles().EnsureTable(ctx); err != nil {
		sugar.Fatalf("profiles schema: %v", err)
	}
	if err := profileSvc.Social().EnsureTables(ctx); err != nil {
		sugar.Fatalf("social schema: %v", err)
	}
	if err := sessionRepo.EnsureTable(ctx); err != nil {
		sugar.Fatalf("sessions schema: %v", err)
	}
	if err := activityRepo.EnsureTables(ctx); err != nil {
		sugar.Fatalf("activity schema: %v", err)
	}
	if err := tokenRepo.EnsureTables(ctx); err != nil {
		sugar.Fatalf("auth token schema: %v", err)
	}

	tokenSvc, err := auth.NewTokenService(auth.TokenConfigFromEnv())
	if err != nil {
		sugar.Fatalf("token service: %v", err)
	}
	sessionSvc := session.NewService(db, sessionRepo, sugar)
	mailer := mail.NewSenderFromEnv(sugar)
	authSvc := auth.NewService(db, tokenSvc, tokenRepo, identitySvc, sessionSvc, activitySvc, mailer, sugar)
	adminSvc := admin.NewService(accountRepo, profileSvc.Profiles())

	handlers := router.Handlers{
		Identity: identity.NewHandler(db, identitySvc, tokenSvc, sugar),
		Auth:     auth.NewHandler(authSvc, sugar),
		Profile:  profile.NewHandler(profileSvc, sugar),
		Activity: activity.NewHandler(activitySvc, sessionSvc, sugar),
		Session:  session.NewHandler(sessionSvc, sugar),
		Admin:    admin.NewHandler(adminSvc, sugar),
	}
	engine := router.New(handlers, tokenSvc, sessionSvc, profileSvc.Profiles(), sugar)

	// sweep expired blacklist rows in the background
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := tokenRepo.PurgeExpired(ctx); err != nil {
					sugar.Warnw("revoked token purge failed", "err", err)
				} else if n > 0 {
					sugar.Debugw("purged expired revoked tokens", "count", n)
				}
			}
		}
	}()

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		sugar.Infow("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown: %v", err)
	}
}
