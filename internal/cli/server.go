package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizforge-service/internal/app"
	"quizforge-service/internal/auth"
	"quizforge-service/internal/config"
	"quizforge-service/internal/domain"
	"quizforge-service/internal/infra/gemini"
	"quizforge-service/internal/infra/memory"
	pgstore "quizforge-service/internal/infra/postgres"
	redisinfra "quizforge-service/internal/infra/redis"
	sqlitestore "quizforge-service/internal/infra/sqlite"
	transport "quizforge-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	// Question source: the generative endpoint when a key is configured,
	// otherwise a small canned set so the service stays usable offline.
	var source memory.QuestionSource = memory.NewStaticQuestionSource(sampleBatches())
	if cfg.Gemini.APIKey != "" {
		source = gemini.NewClient(cfg.Gemini.Endpoint, cfg.Gemini.APIKey, cfg.Gemini.QuestionCount)
	} else {
		log.Printf("no gemini api key configured, serving canned sample questions")
	}

	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	var questionRepo app.QuestionRepository
	if redisClient != nil {
		questionRepo = redisinfra.NewQuestionRepository(redisClient, source, cacheTTL)
	} else {
		questionRepo = memory.NewQuestionRepository(source, cacheTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}

	// Identity: postgres when configured, sqlite for offline installs,
	// memory as a last resort for throwaway runs.
	var users auth.UserStore
	switch {
	case pool != nil:
		users = pgstore.NewUserStore(pool)
	case cfg.SQLite.Path != "":
		sqliteUsers, err := sqlitestore.NewUserStore(cfg.SQLite.Path)
		if err != nil {
			return err
		}
		defer sqliteUsers.Close()
		users = sqliteUsers
	default:
		log.Printf("no user database configured, accounts will not survive restarts")
		users = memory.NewUserStore()
	}

	var denylist auth.TokenDenylist
	if redisClient != nil {
		denylist = redisinfra.NewTokenDenylist(redisClient)
	} else {
		denylist = memory.NewTokenDenylist()
	}

	secret := cfg.Auth.Secret
	if secret == "" {
		secret = "quizforge-dev-secret"
		log.Printf("AUTH_SECRET not set, using insecure dev secret")
	}
	authService := auth.NewService(users, denylist, secret, config.TTLDuration(cfg.Auth.TokenTTL, 8*time.Hour))

	service := app.NewQuizServiceWithBudget(store, questionRepo, cfg.Quiz.QuestionSeconds)
	handler := transport.NewRouter(service, authService, cfg.Server.CORSOrigins)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleBatches keeps the service demoable without a generative API key.
func sampleBatches() map[string][]domain.Question {
	return map[string][]domain.Question{
		"go": {
			{
				Prompt:      "Which keyword starts a new goroutine?",
				Options:     []string{"spawn", "go", "async", "fork"},
				Answer:      "B",
				Explanation: "The go statement runs a function concurrently in a new goroutine.",
			},
			{
				Prompt:      "What does a nil map lookup return?",
				Options:     []string{"panic", "compile error", "the zero value", "undefined behavior"},
				Answer:      "C",
				Explanation: "Reading from a nil map yields the value type's zero value; only writes panic.",
			},
			{
				Prompt:      "Which builtin grows a slice?",
				Options:     []string{"append", "push", "extend", "add"},
				Answer:      "A",
				Explanation: "append returns a slice with the elements added, reallocating when needed.",
			},
		},
	}
}
