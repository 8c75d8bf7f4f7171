package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"zeroforums/internal/captcha"
	"zeroforums/internal/dto"
	obsmw "zeroforums/internal/observability/middleware"
	"zeroforums/internal/reqsig"
	"zeroforums/internal/service"
)

type RouterConfig struct {
	CORSOrigins []string
	// IPLimit is the coarse per-IP cap in front of the signed-request checks.
	// Keep it well above the per-client window so clients sharing an address
	// are limited individually, not collectively.
	IPLimit  int
	IPWindow time.Duration
}

// NewRouter wires the middleware chain and the auth endpoints.
func NewRouter(auth *service.Service, captchas *captcha.Service, sec *SecurityMiddleware, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(obsmw.WithRequestAndTrace)
	r.Use(obsmw.Instrument)

	if cfg.IPLimit <= 0 {
		cfg.IPLimit = 1000
	}
	if cfg.IPWindow <= 0 {
		cfg.IPWindow = time.Minute
	}
	r.Use(httprate.LimitByIP(cfg.IPLimit, cfg.IPWindow))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: originsIfSet(cfg.CORSOrigins),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Content-Type",
			reqsig.HeaderTimestamp,
			reqsig.HeaderNonce,
			reqsig.HeaderSignature,
			reqsig.HeaderRequestID,
			reqsig.HeaderSessionToken,
			reqsig.HeaderFingerprint,
		},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(sec.Handler)

		r.Get("/captcha", func(w http.ResponseWriter, req *http.Request) {
			rec, err := captchas.Issue(req.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, dto.CaptchaResponse{
				Token:     rec.Token,
				Challenge: rec.Challenge,
				Solution:  rec.Solution,
			})
		})

		r.Post("/auth/register", handleRegister(auth))
		r.Post("/auth/login", handleLogin(auth))
		r.Post("/auth/logout", handleLogout(auth))
		r.Post("/auth/wipe", handleWipe(auth))
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func originsIfSet(in []string) []string {
	out := []string{}
	for _, o := range in {
		if s := strings.TrimSpace(o); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
