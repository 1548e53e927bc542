// Command authgate runs the authentication gateway as an HTTP service in
// front of an external identity provider.
//
// Configuration comes from the environment (a .env file is loaded when
// present):
//
//	PORT                    listen port (default 3000)
//	REDIS_ADDR              session store address (default localhost:6379)
//	REDIS_PASSWORD          session store password (optional)
//	PROVIDER_BASE_URL       identity provider base URL (required)
//	PROVIDER_TIMEOUT        provider request timeout (default 10s)
//	JWT_PRIVATE_KEY_FILE    PEM signing key path (required)
//	JWT_PUBLIC_KEY_FILE     PEM verification key path (optional)
//	JWT_SIGNING_METHOD      rs256 or ed25519 (default rs256)
//	JWT_ISSUER              iss claim (optional)
//	ACCESS_TTL              gateway access credential lifetime (default 15m)
//	RATE_LIMIT              default requests per window (default 100)
//	RATE_LIMIT_WINDOW       window length (default 1m)
//	RATE_LIMIT_EXEMPT       comma-separated exempt routes
//	LOG_LEVEL               zerolog level (default info)
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	authgate "github.com/paygate-labs/authgate"
	promexport "github.com/paygate-labs/authgate/metrics/export/prometheus"
	"github.com/paygate-labs/authgate/middleware"
	"github.com/paygate-labs/authgate/ratelimit"
)

func main() {
	_ = godotenv.Load()

	log := newLogger(envStr("LOG_LEVEL", "info"))

	engine, rdb, err := buildEngine(log)
	if err != nil {
		log.Fatal().Err(err).Msg("engine setup failed")
	}
	defer engine.Close()
	defer rdb.Close()

	limiter := ratelimit.New(
		ratelimit.NewRedisStorage(rdb),
		ratelimit.Config{
			Default: ratelimit.Policy{
				Limit:  envInt("RATE_LIMIT", 100),
				Window: envDuration("RATE_LIMIT_WINDOW", time.Minute),
			},
			Exempt: splitList(os.Getenv("RATE_LIMIT_EXEMPT")),
		},
	)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", loginHandler(engine))
	mux.HandleFunc("POST /refresh-token", refreshHandler(engine))
	mux.Handle("POST /logout", middleware.Guard(engine)(logoutHandler(engine)))
	mux.Handle("GET /me", middleware.Guard(engine)(http.HandlerFunc(meHandler)))
	mux.HandleFunc("GET /health", healthHandler(engine))
	mux.Handle("GET /metrics", promexport.NewExporter(engine).Handler())

	var handler http.Handler = mux
	handler = middleware.RateLimit(limiter)(handler)
	handler = middleware.RequestLogger(log)(handler)
	handler = middleware.Correlation()(handler)

	addr := ":" + envStr("PORT", "3000")
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}

func buildEngine(log zerolog.Logger) (*authgate.Engine, *redis.Client, error) {
	baseURL := os.Getenv("PROVIDER_BASE_URL")
	if baseURL == "" {
		return nil, nil, errors.New("PROVIDER_BASE_URL is required")
	}
	privPath := os.Getenv("JWT_PRIVATE_KEY_FILE")
	if privPath == "" {
		return nil, nil, errors.New("JWT_PRIVATE_KEY_FILE is required")
	}
	priv, err := os.ReadFile(privPath)
	if err != nil {
		return nil, nil, err
	}
	var pub []byte
	if pubPath := os.Getenv("JWT_PUBLIC_KEY_FILE"); pubPath != "" {
		if pub, err = os.ReadFile(pubPath); err != nil {
			return nil, nil, err
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     envStr("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	cfg := authgate.Config{
		JWT: authgate.JWTConfig{
			AccessTTL:     envDuration("ACCESS_TTL", 15*time.Minute),
			SigningMethod: envStr("JWT_SIGNING_METHOD", "rs256"),
			PrivateKey:    priv,
			PublicKey:     pub,
			Issuer:        os.Getenv("JWT_ISSUER"),
		},
		Session: authgate.SessionConfig{RedisPrefix: "session"},
		Provider: authgate.ProviderConfig{
			BaseURL: baseURL,
			Timeout: envDuration("PROVIDER_TIMEOUT", 10*time.Second),
		},
		Audit: authgate.AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: authgate.MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}

	engine, err := authgate.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(log).
		WithAuditSink(authgate.NewZerologSink(log)).
		Build()
	if err != nil {
		rdb.Close()
		return nil, nil, err
	}

	return engine, rdb, nil
}

func loginHandler(engine *authgate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Login    string `json:"login"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		pair, err := engine.Login(r.Context(), body.Login, body.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tokenPairResponse(pair))
	}
}

func refreshHandler(engine *authgate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		pair, err := engine.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tokenPairResponse(pair))
	}
}

func logoutHandler(engine *authgate.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := middleware.AuthResultFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		revoked, err := engine.Logout(r.Context(), res.Principal.SubjectID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"revoked": revoked})
	})
}

func meHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":                    res.Principal.SubjectID,
		"name":                  res.Principal.Name,
		"profileOrganizationId": res.Principal.OrganizationID,
	})
}

func healthHandler(engine *authgate.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := engine.StoreHealthy(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func tokenPairResponse(pair *authgate.TokenPair) map[string]any {
	out := map[string]any{
		"accessToken": pair.AccessToken,
		"expiresAt":   pair.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if pair.RefreshToken != "" {
		out["refreshToken"] = pair.RefreshToken
	}
	return out
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authgate.ErrAuthenticationFailed),
		errors.Is(err, authgate.ErrRefreshInvalid),
		errors.Is(err, authgate.ErrTokenInvalid),
		errors.Is(err, authgate.ErrSessionExpired),
		errors.Is(err, authgate.ErrCredentialRevoked):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, authgate.ErrMalformedProviderResponse):
		http.Error(w, "bad gateway", http.StatusBadGateway)
	case errors.Is(err, authgate.ErrProviderUnavailable),
		errors.Is(err, authgate.ErrStoreUnavailable):
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
