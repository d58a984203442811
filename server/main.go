package main

import (
	"net/http"
	"os"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/openclaw/quotatop/internal/quota"
	"github.com/openclaw/quotatop/server/internal/auth"
	"github.com/openclaw/quotatop/server/internal/handlers"
	"github.com/openclaw/quotatop/server/internal/middleware"
	"github.com/openclaw/quotatop/server/internal/store"
	"github.com/openclaw/quotatop/server/internal/templates"
)

func main() {
	// .env is optional; real env vars win
	_ = godotenv.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	port := getEnv("PORT", "8080")
	dbPath := getEnv("DB_PATH", "./quotatop.db")

	db, err := store.Open(dbPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	sessions := scs.New()
	sessions.Store = sqlite3store.New(db.DB)
	sessions.Lifetime = 7 * 24 * time.Hour
	sessions.Cookie.Secure = false // Set to true in production with HTTPS
	sessions.Cookie.SameSite = http.SameSiteLaxMode

	tmpl, err := templates.Parse()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse templates")
	}

	h := handlers.New(db, sessions, tmpl, quota.Defaults(), logger)
	authMiddleware := auth.NewMiddleware(db, sessions)
	pushLimiter := middleware.NewPushRateLimiter(1, 5)

	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("/", h.Index)
	mux.HandleFunc("/login", h.Login)
	mux.HandleFunc("/register", h.Register)

	// Protected routes (session-based)
	mux.Handle("/logout", authMiddleware.RequireLogin(http.HandlerFunc(h.Logout)))

	// API routes (API key-based, rate limited)
	mux.Handle("/api/push", pushLimiter.Limit(authMiddleware.RequireAPIKey(http.HandlerFunc(h.APIPush))))
	mux.Handle("/api/push/status", pushLimiter.Limit(authMiddleware.RequireAPIKey(http.HandlerFunc(h.APIPushStatus))))

	handler := middleware.SecurityHeaders(sessions.LoadAndSave(mux))

	addr := ":" + port
	logger.Info().Str("addr", addr).Str("db", dbPath).Msg("starting quotatop-server")

	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
