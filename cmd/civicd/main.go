package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/civicai/civicai/internal/auth"
	"github.com/civicai/civicai/internal/classify"
	"github.com/civicai/civicai/internal/config"
	"github.com/civicai/civicai/internal/issues"
	"github.com/civicai/civicai/internal/logging"
	"github.com/civicai/civicai/internal/photostore"
	"github.com/civicai/civicai/internal/realtime"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// CLI flags
var (
	addrFlag  string
	modelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "civicd",
	Short: "Civic issue reporting API server",
	Long: `civicd serves the civic issue reporting API: AI classification of
issue photos and descriptions, the issue store, photo storage, and a
realtime event feed for the officer dashboard.

Examples:
  civicd
  civicd --addr :9090
  civicd --model gemini-2.5-pro`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (overrides config)")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini model to use (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()
	start := time.Now()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if addrFlag != "" {
		cfg.ListenAddr = addrFlag
	}
	if modelFlag != "" {
		cfg.Gemini.Model = modelFlag
	}

	startup := logging.NewStartupLogger("civicd")
	startup.Config("listen_addr", cfg.ListenAddr)
	startup.Config("gemini_model", cfg.Gemini.Model)

	// Validate API key at startup
	apiKey, err := auth.GetAPIKey()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get API key")
	}

	ctx := context.Background()
	client, err := classify.NewGeminiClient(ctx, apiKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}
	if err := auth.ValidateAPIKey(ctx, client); err != nil {
		log.Fatal().Err(err).Msg("Invalid API key")
	}
	startup.Feature("gemini", true)

	classifier := classify.New(classify.Config{
		MaxAttempts: cfg.Gemini.MaxAttempts,
		BaseDelay:   cfg.Gemini.BaseDelay,
		MinInterval: cfg.Gemini.MinInterval,
	},
		classify.NewSDKTransport(client, cfg.Gemini.Model),
		classify.NewRESTTransport(apiKey, cfg.Gemini.Model),
	)

	if !cfg.Database.IsConfigured() {
		log.Fatal().Msg("Database is not configured (set CIVIC_DB_HOST, CIVIC_DB_NAME, CIVIC_DB_USER)")
	}
	pool, err := issues.Connect(ctx, cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()
	if err := issues.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}
	store := issues.NewStore(pool)
	startup.Resource("database", cfg.Database.Host)

	feed := realtime.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.Channel)
	defer feed.Close()
	if err := feed.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("Redis unreachable, realtime feed disabled")
		feed = nil
	} else {
		startup.Resource("redis", cfg.Redis.Addr)
	}
	startup.Feature("realtime_feed", feed != nil)

	var photos *photostore.Store
	if cfg.S3.Bucket != "" {
		photos, err = photostore.New(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.PresignExpiry)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize photo storage")
		}
		startup.Resource("s3_bucket", cfg.S3.Bucket)
	}
	startup.Feature("photo_storage", photos != nil)

	srv := &server{
		classifier: classifier,
		store:      store,
		feed:       feed,
		photos:     photos,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", srv.handleHealth)
	mux.HandleFunc("POST /api/classify/image", srv.handleClassifyImage)
	mux.HandleFunc("POST /api/classify/text", srv.handleClassifyText)
	mux.HandleFunc("POST /api/issues", srv.handleCreateIssue)
	mux.HandleFunc("GET /api/issues", srv.handleListIssues)
	mux.HandleFunc("GET /api/issues/{id}", srv.handleGetIssue)
	mux.HandleFunc("PATCH /api/issues/{id}", srv.handleUpdateIssue)
	mux.HandleFunc("POST /api/issues/{id}/status", srv.handleUpdateStatus)
	mux.HandleFunc("POST /api/issues/{id}/photos", srv.handleUploadPhoto)
	mux.HandleFunc("GET /api/issues/{id}/photos/{index}", srv.handleGetPhoto)
	mux.HandleFunc("GET /api/reporters/{id}/issues", srv.handleReporterIssues)
	mux.HandleFunc("GET /api/stats", srv.handleStats)
	mux.HandleFunc("GET /api/events", srv.handleEvents)

	handler := withLogging(withCORS(mux))

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(ctx)
	}()

	startup.InitDuration(time.Since(start))
	startup.Log()
	log.Info().Str("addr", cfg.ListenAddr).Msg("Starting API server")
	fmt.Printf("\n  Civic API: http://localhost%s\n\n", normalizeAddr(cfg.ListenAddr))

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// normalizeAddr makes a bare ":8080" printable as a localhost URL suffix.
func normalizeAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return addr
	}
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[idx:]
	}
	return ":" + addr
}

// --- Middleware ---

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if strings.HasPrefix(r.URL.Path, "/api/") {
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("API request")
		}
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Mobile clients send no Origin; only browsers on localhost need CORS.
		origin := r.Header.Get("Origin")
		if origin != "" && (strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
