package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"quiz-session-engine/internal/app"
	"quiz-session-engine/internal/config"
	"quiz-session-engine/internal/domain"
	"quiz-session-engine/internal/engine"
	"quiz-session-engine/internal/infra/memory"
	pgstore "quiz-session-engine/internal/infra/postgres"
	redisstore "quiz-session-engine/internal/infra/redis"
	"quiz-session-engine/internal/persist"
	"quiz-session-engine/internal/submission"
	transport "quiz-session-engine/internal/transport/http"
)

const (
	defaultSubmitEndpoint = "http://localhost:8000/quiz/results/"
	wsRoute               = "/ws"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyLogConfig(cfg.Log.Level, cfg.Log.Format)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	snapshotTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgstore.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	snapshots, err := snapshotBackend(cfg.Storage.Backend, redisClient, pool, snapshotTTL)
	if err != nil {
		return err
	}

	endpoint := cfg.Submission.Endpoint
	if endpoint == "" {
		endpoint = defaultSubmitEndpoint
	}
	resultsURL := cfg.Submission.ResultsURL
	if resultsURL == "" {
		resultsURL = endpoint
	}
	httpClient := &http.Client{Timeout: config.TTLDuration(cfg.Submission.Timeout, 15*time.Second)}
	submitters := func(quizID string, creds app.Credentials) engine.Submitter {
		return submission.NewClient(httpClient, app.ExpandQuizURL(endpoint, quizID), creds.CSRFToken).WithCookies(creds.Cookies)
	}

	route := cfg.Storage.Route
	if route == "" {
		route = wsRoute
	}
	sessions := app.NewSessionService(quizRepo, snapshots, submitters, app.Options{
		Route:      route,
		ResultsURL: resultsURL,
		SaveDelay:  config.TTLDuration(cfg.Storage.SaveDelay, persist.DefaultDelay),
		Logger:     slog.Default(),
	})
	wsHandler := transport.NewWSHandler(sessions, slog.Default())

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "sessions": sessions.Active()})
	})
	mux.HandleFunc(wsRoute, wsHandler.ServeWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting quiz session server", "port", finalPort, "storage", storageName(cfg.Storage.Backend, redisClient))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		sessions.Shutdown(shutdownCtx)
		return err
	})
	return g.Wait()
}

// snapshotBackend picks where session snapshots live. An empty choice means
// Redis when it is configured, memory otherwise.
func snapshotBackend(name string, redisClient *redis.Client, pool *pgxpool.Pool, ttl time.Duration) (persist.Backend, error) {
	switch storageName(name, redisClient) {
	case "redis":
		if redisClient == nil {
			return nil, errors.New("redis snapshot storage needs redis.addr")
		}
		return redisstore.NewSnapshotStore(redisClient, ttl), nil
	case "postgres":
		if pool == nil {
			return nil, errors.New("postgres snapshot storage needs postgres.url")
		}
		return pgstore.NewSnapshotStore(pool), nil
	default:
		return memory.NewSnapshotStore(), nil
	}
}

func storageName(name string, redisClient *redis.Client) string {
	if name != "" {
		return name
	}
	if redisClient != nil {
		return "redis"
	}
	return "memory"
}

// sampleQuizzes provides a demo quiz for running without Postgres.
func sampleQuizzes() map[string]domain.QuizFeed {
	return map[string]domain.QuizFeed{
		"quiz-1": {
			MCQ: json.RawMessage(`[
				{"question":"Which organelle carries out photosynthesis?","options":["Mitochondrion","Chloroplast","Ribosome","Nucleus"]},
				{"question":"What gas do plants release during photosynthesis?","options":["Carbon dioxide","Nitrogen","Oxygen"]}
			]`),
			Short: json.RawMessage(`[
				{"question":"Name the pigment that absorbs light in plants."}
			]`),
			TimeMinutes: 10,
		},
	}
}
