// Command graphd wires together the knowledge-graph platform's
// storage, policy, and observability layers from configuration. HTTP
// routing and request handlers are an explicit non-goal (spec.md §1)
// — this binary starts the ambient subsystems (store connection,
// policy engine, tracing/metrics) and a bare liveness endpoint, the
// way the teacher's cmd/helm wires its own subsystems ahead of
// registering routes, but stops short of the router itself.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hashintel/hash-sub007/pkg/config"
	"github.com/hashintel/hash-sub007/pkg/observability"
	"github.com/hashintel/hash-sub007/pkg/policy"
	"github.com/hashintel/hash-sub007/pkg/store"
)

func main() {
	os.Exit(Run())
}

// Run builds every ambient subsystem, blocks until a shutdown signal
// arrives, and returns the process exit code.
func Run() int {
	ctx := context.Background()
	logger := slog.Default()

	cfg := config.Load()

	obs, err := observability.New(ctx, &observability.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    os.Getenv("ENVIRONMENT"),
		OTLPEndpoint:   cfg.OtelEndpoint,
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
		Enabled:        os.Getenv("OTEL_DISABLED") != "true",
		Insecure:       true,
	})
	if err != nil {
		log.Fatalf("graphd: init observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("graphd: open database: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("graphd: ping database: %v", err)
	}
	graphStore := store.NewPostgresStore(db)
	_ = graphStore // wired to request handlers out of scope for this binary

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("graphd: parse REDIS_URL: %v", err)
	}
	policyCache := policy.NewCache(redisOpts.Addr, redisOpts.Password, redisOpts.DB, time.Minute)
	_ = policyCache

	principalStore := policy.NewMemoryStore()
	if bundlePath := os.Getenv("POLICY_BUNDLE_PATH"); bundlePath != "" {
		bundle, err := config.LoadPolicyBundle(bundlePath)
		if err != nil {
			log.Fatalf("graphd: load policy bundle: %v", err)
		}
		resolved, err := bundle.Resolve()
		if err != nil {
			log.Fatalf("graphd: resolve policy bundle: %v", err)
		}
		seedPrincipalStore(principalStore, resolved)
		logger.Info("graphd: policy bundle loaded", "teams", len(resolved.Teams), "roles", len(resolved.Roles), "policies", len(resolved.Policies))
	}
	engine := policy.NewEngine(principalStore)
	_ = engine

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	healthSrv := &http.Server{Addr: fmt.Sprintf(":%s", cfg.Port), Handler: healthMux}
	go func() {
		logger.Info("graphd: health server listening", "port", cfg.Port)
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("graphd: health server failed", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("graphd: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(shutdownCtx)

	return 0
}

// seedPrincipalStore loads a resolved policy bundle's teams, roles,
// and policies into an in-memory Store.
func seedPrincipalStore(s *policy.MemoryStore, resolved *config.Resolved) {
	for i := range resolved.Teams {
		s.AddTeam(&resolved.Teams[i])
	}
	for i := range resolved.Roles {
		s.AddRole(&resolved.Roles[i])
	}
	for i := range resolved.Policies {
		s.AddPolicy(&resolved.Policies[i])
	}
}
