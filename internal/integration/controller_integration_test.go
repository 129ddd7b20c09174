package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quizroom/internal/app"
	"quizroom/internal/domain"
	pgquestions "quizroom/internal/infra/postgres"
	pgmigrations "quizroom/internal/infra/postgres/migrations"
	infraredis "quizroom/internal/infra/redis"
	"quizroom/internal/transport/rooms"
)

// TestQuestionBankPersistsAcrossConnections exercises the Postgres-backed
// question bank end to end: save a template, list it back, delete it.
func TestQuestionBankPersistsAcrossConnections(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	runMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	bank := pgquestions.NewQuestionBank(pool)

	saved := domain.SavedQuestion{
		ID:        "q1",
		OwnerName: "alice",
		Text:      "what is 2 + 2?",
		TimeLimit: 30,
		Body: domain.BodySubmission{
			Kind:   domain.MultipleChoice,
			Answer: 1,
			Choices: []domain.ChoiceSubmission{
				{Text: "3", Points: 100},
				{Text: "4", Points: 100},
			},
		},
	}
	if err := bank.Save(ctx, saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	list, err := bank.ListByOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != "q1" || list[0].Text != saved.Text {
		t.Fatalf("expected saved question back, got %+v", list)
	}

	if err := bank.Delete(ctx, "alice", "q1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, err = bank.ListByOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected question bank empty after delete, got %+v", list)
	}
}

// TestRedisMirroredSessionSetsLivenessKeyAndAcceptsJoin exercises a
// Controller wired to a Redis-mirrored registry: creating a Session sets its
// liveness key in Redis, and a second connection can then join that Session
// through the same Controller.
func TestRedisMirroredSessionSetsLivenessKeyAndAcceptsJoin(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	registry := infraredis.NewRegistryMirror(redisClient, 5*time.Minute)

	transport := rooms.NewManager()
	controller := app.NewControllerWithRegistry(transport, registry)

	createAck := controller.CreateSession("owner-conn")
	if createAck.Status != app.StatusOK {
		t.Fatalf("create session: %+v", createAck)
	}
	sessionID, _ := createAck.Data.(string)
	if sessionID == "" {
		t.Fatalf("expected session id in create ack, got %+v", createAck)
	}

	key := "quizroom:session:" + sessionID
	exists, err := redisClient.Exists(ctx, key).Result()
	if err != nil {
		t.Fatalf("check liveness key: %v", err)
	}
	if exists != 1 {
		t.Fatalf("expected liveness key %q to be set", key)
	}

	joinAck := controller.JoinSession("participant-conn", app.JoinArgs{ID: sessionID, Name: "bob"})
	if joinAck.Status != app.StatusOK {
		t.Fatalf("join session: %+v", joinAck)
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

func runMigrations(t *testing.T, ctx context.Context, dsn string) {
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
