package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"zeroforums/internal/captcha"
	"zeroforums/internal/config"
	"zeroforums/internal/lockout"
	"zeroforums/internal/observability/logging"
	"zeroforums/internal/observability/metrics"
	"zeroforums/internal/ratelimit"
	"zeroforums/internal/reqsig"
	"zeroforums/internal/service"
	"zeroforums/internal/store"
	transport "zeroforums/internal/transport/http"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger := logging.NewLogger(logging.Config{
		ServiceName: "zeroforums",
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})
	slog.SetDefault(logger)
	logger.Info("starting service")

	metrics.MustRegister("zeroforums")

	gdb, err := store.OpenGorm(store.Config{DSN: cfg.DatabaseURL, LogSQL: cfg.LogSQL})
	if err != nil {
		logger.Error("gorm open", "error", err)
		os.Exit(1)
	}
	st := store.New(gdb)
	if err := st.Migrate(); err != nil {
		logger.Error("migrate", "error", err)
		os.Exit(1)
	}

	tokens := service.NewTokenService(service.TokenConfig{
		Issuer:     cfg.Issuer,
		Audience:   cfg.Audience,
		TTL:        cfg.SessionTTL,
		SigningKey: []byte(cfg.ServerSecret),
	})
	captchas := captcha.NewService(st.Captchas(), cfg.CaptchaTTL)
	locks := lockout.NewMemory(lockout.DefaultPolicy())
	auth := service.New(st, tokens, captchas, locks, []byte(cfg.ServerSecret))

	validator := reqsig.NewValidator(st.Nonces(), auth.SessionSecret)
	validator.MaxSkew = cfg.MaxSkew
	limiter := ratelimit.NewSlidingWindow(cfg.RateLimit, cfg.RateWindow)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := seedLockouts(ctx, st, locks); err != nil {
		logger.Warn("lockout state rebuild failed", "error", err)
	}

	limiter.StartSweeper(ctx, cfg.SweepInterval)
	locks.StartSweeper(ctx, cfg.SweepInterval)
	startStoreSweepers(ctx, st, captchas, cfg.SweepInterval)

	sec := &transport.SecurityMiddleware{Validator: validator, Limiter: limiter}
	mux := transport.NewRouter(auth, captchas, sec, transport.RouterConfig{
		CORSOrigins: splitOrigins(cfg.CORSOrigins),
		// Well above the per-client budget, so clients behind a shared NAT
		// address hit the per-client limiter before the coarse IP cap.
		IPLimit:  cfg.RateLimit * 10,
		IPWindow: cfg.RateWindow,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("listening", "addr", srv.Addr, "issuer", cfg.Issuer)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

// seedLockouts replays the audited login attempts still inside the lockout
// window, so a restart does not reset active lockouts.
func seedLockouts(ctx context.Context, st *store.Store, locks *lockout.Memory) error {
	since := time.Now().UTC().Add(-lockout.DefaultPolicy().Window)
	attempts, err := st.LoginAttempts().ListSince(ctx, since)
	if err != nil {
		return err
	}
	for _, a := range attempts {
		locks.Seed(a.ClientKey, a.At, a.Success)
	}
	if len(attempts) > 0 {
		slog.Info("lockout state rebuilt", "attempts", len(attempts))
	}
	return nil
}

// startStoreSweepers clears expired sessions, nonces, captchas and stale login
// attempts on the shared interval.
func startStoreSweepers(ctx context.Context, st *store.Store, captchas *captcha.Service, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := time.Now().UTC()
				if err := st.Sessions().DeleteExpired(ctx, now); err != nil {
					slog.Warn("session sweep failed", "error", err)
				}
				if err := st.Nonces().Sweep(ctx, now); err != nil {
					slog.Warn("nonce sweep failed", "error", err)
				}
				if err := captchas.Sweep(ctx); err != nil {
					slog.Warn("captcha sweep failed", "error", err)
				}
				if err := st.LoginAttempts().DeleteBefore(ctx, now.Add(-lockout.DefaultPolicy().Window)); err != nil {
					slog.Warn("login attempt sweep failed", "error", err)
				}
			}
		}
	}()
}

func splitOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
