package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"quizforge-service/internal/app"
	"quizforge-service/internal/auth"
	"quizforge-service/internal/domain"
	"quizforge-service/internal/infra/memory"
	pgstore "quizforge-service/internal/infra/postgres"
	pgmigrations "quizforge-service/internal/infra/postgres/migrations"
	infraredis "quizforge-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestAuthLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateUsers(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	users := pgstore.NewUserStore(pool)
	denied := infraredis.NewTokenDenylist(redisClient)
	authSvc := auth.NewService(users, denied, "integration-secret", time.Hour)

	token, user, err := authSvc.SignUp(ctx, "alice@example.com", "correct-horse", "Alice")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Email != "alice@example.com" || user.ID == "" {
		t.Fatalf("unexpected user after signup: %+v", user)
	}

	if _, _, err := authSvc.SignUp(ctx, "Alice@Example.com", "another-pass", ""); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken for duplicate email, got %v", err)
	}

	claims, err := authSvc.Verify(ctx, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != user.ID {
		t.Fatalf("expected subject %s, got %s", user.ID, claims.Subject)
	}

	signin, _, err := authSvc.SignIn(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("signin: %v", err)
	}

	if err := authSvc.SignOut(ctx, signin); err != nil {
		t.Fatalf("signout: %v", err)
	}
	if _, err := authSvc.Verify(ctx, signin); !errors.Is(err, domain.ErrTokenRevoked) {
		t.Fatalf("expected revoked token, got %v", err)
	}
	// Revocation is per token, not per user.
	if _, err := authSvc.Verify(ctx, token); err != nil {
		t.Fatalf("verify untouched token: %v", err)
	}
}

func TestQuizFlowWithRedisBackends(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	source := &countingSource{inner: memory.NewStaticQuestionSource(map[string][]domain.Question{
		"go": {
			{
				Prompt:      "Which keyword starts a goroutine?",
				Options:     []string{"spawn", "go", "async", "fork"},
				Answer:      "B",
				Explanation: "the go statement",
			},
			{
				Prompt:      "Which builtin grows a slice?",
				Options:     []string{"append", "push", "extend", "add"},
				Answer:      "A",
				Explanation: "append reallocates as needed",
			},
		},
	})}
	questions := infraredis.NewQuestionRepository(redisClient, source, 5*time.Minute)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	service := app.NewQuizService(sessions, questions)

	snap := service.Attach(ctx, "s1")
	if snap.Phase != domain.PhaseAwaitingTopic {
		t.Fatalf("expected awaiting_topic, got %s", snap.Phase)
	}

	snap, err = service.Start(ctx, "s1", "Go", "easy")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.Phase != domain.PhaseInProgress || len(snap.Questions) != 2 {
		t.Fatalf("unexpected snapshot after start: %+v", snap)
	}

	snap, err = service.Select(ctx, "s1", "B")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if snap.Score != 1 || !snap.Locked[0] {
		t.Fatalf("expected first question scored and locked, got %+v", snap)
	}

	if _, err := service.Advance(ctx, "s1", true); err != nil {
		t.Fatalf("advance: %v", err)
	}
	snap, err = service.Select(ctx, "s1", "C")
	if err != nil {
		t.Fatalf("select second: %v", err)
	}
	if snap.Score != 1 {
		t.Fatalf("wrong answer must not score, got %d", snap.Score)
	}

	snap, err = service.Advance(ctx, "s1", true)
	if err != nil {
		t.Fatalf("advance past last: %v", err)
	}
	if snap.Phase != domain.PhaseFinished {
		t.Fatalf("expected finished, got %s", snap.Phase)
	}

	// A second session on the same topic must hit the Redis cache.
	service.Attach(ctx, "s2")
	if _, err := service.Start(ctx, "s2", "Go", "easy"); err != nil {
		t.Fatalf("cached start: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected 1 source call, got %d", source.calls)
	}
}

type countingSource struct {
	inner *memory.StaticQuestionSource
	calls int
}

func (s *countingSource) GenerateQuestions(ctx context.Context, topic string, difficulty domain.Difficulty) ([]domain.Question, error) {
	s.calls++
	return s.inner.GenerateQuestions(ctx, topic, difficulty)
}

func migrateUsers(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
