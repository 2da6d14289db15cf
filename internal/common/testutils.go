package common

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
)

// The helpers below start throwaway containers, so they need a docker daemon.
// Integration tests call skipShort first so `go test -short` stays hermetic.

func skipShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
}

func TestRabbitMQ(t *testing.T) string {
	skipShort(t)
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.12.11-management-alpine", rabbitmq.WithAdminUsername("guest"), rabbitmq.WithAdminPassword("guest"))
	if err != nil {
		t.Fatalf("could not start rabbitmq container: %v", err)
	}

	connURL, err := container.AmqpURL(ctx)
	if err != nil {
		t.Fatalf("could not get rabbitmq connection URL: %v", err)
	}

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Fatalf("could not terminate container: %v", err)
		}
	})

	return connURL
}

// TestDB starts postgres and applies the migrations at filepath, which is relative to the
// caller and looks like "file://../../migrations".
func TestDB(filepath string, t *testing.T) *sql.DB {
	skipShort(t)
	ctx := context.Background()

	c, err := postgres.Run(ctx,
		"docker.io/postgres:16-bookworm",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)))
	if err != nil {
		t.Fatalf("could not start postgres container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("could not get postgres host: %v", err)
	}

	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("could not get postgres port: %v", err)
	}

	cfg := DBConfig{
		Host:         host,
		Port:         port.Port(),
		User:         "user",
		Password:     "password",
		Name:         "testdb",
		MaxOpenConns: 5,
		MaxIdleConns: 5,
		MaxIdleTime:  time.Minute,
	}

	if err := MigrateDB(filepath, cfg); err != nil {
		t.Fatalf("could not run migrations: %v", err)
	}

	db, err := NewDB(ctx, cfg)
	if err != nil {
		t.Fatalf("could not open database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
		c.Terminate(ctx)
	})

	return db
}

func TestMongo(t *testing.T) *MongoDB {
	skipShort(t)
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("could not start mongo container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("could not get mongo host: %v", err)
	}

	port, err := c.MappedPort(ctx, "27017/tcp")
	if err != nil {
		t.Fatalf("could not get mongo port: %v", err)
	}

	db, err := NewMongoDB(ctx, fmt.Sprintf("mongodb://%s:%s", host, port.Port()), "testdb")
	if err != nil {
		t.Fatalf("could not connect to mongo: %v", err)
	}

	t.Cleanup(func() {
		db.Drop(ctx)
		db.Close(ctx)
		c.Terminate(ctx)
	})

	return db
}

func TestRedis(t *testing.T) *redis.Client {
	skipShort(t)
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("could not start redis container: %v", err)
	}

	endpoint, err := c.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("could not get redis endpoint: %v", err)
	}

	client, err := NewRedisClient(endpoint, "", 0)
	if err != nil {
		t.Fatalf("could not connect to redis: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		c.Terminate(ctx)
	})

	return client
}
