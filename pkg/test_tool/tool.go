package testtool

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Endpoint 啟動完成的測試容器與對外位址
type Endpoint struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

// Addr host:port
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, e.Port)
}

// Containers 收集已啟動的容器, TestMain 結束時一次關閉
type Containers struct {
	started []testcontainers.Container
}

// Start 啟動 req 並回傳第一個 exposed port 的對外位址
func (c *Containers) Start(ctx context.Context, req testcontainers.ContainerRequest) (Endpoint, error) {
	if len(req.ExposedPorts) == 0 {
		return Endpoint{}, fmt.Errorf("%s: no exposed port", req.Image)
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return Endpoint{}, fmt.Errorf("start %s: %w", req.Image, err)
	}
	c.started = append(c.started, container)

	host, err := container.Host(ctx)
	if err != nil {
		return Endpoint{}, err
	}

	natPort, err := nat.NewPort("tcp", strings.TrimSuffix(req.ExposedPorts[0], "/tcp"))
	if err != nil {
		return Endpoint{}, err
	}
	port, err := container.MappedPort(ctx, natPort)
	if err != nil {
		return Endpoint{}, err
	}

	return Endpoint{Container: container, Host: host, Port: port.Port()}, nil
}

// TerminateAll 反向關閉所有容器
func (c *Containers) TerminateAll(ctx context.Context) {
	for i := len(c.started) - 1; i >= 0; i-- {
		_ = c.started[i].Terminate(ctx)
	}
	c.started = nil
}

// PostgresRequest postgres:16-alpine, user/password/db 都是 test/test/testdb
func PostgresRequest() testcontainers.ContainerRequest {
	return testcontainers.ContainerRequest{
		Image: "postgres:16-alpine",
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}
}

// PostgresDSN connection string for an Endpoint started from PostgresRequest
func PostgresDSN(e Endpoint) string {
	return "postgres://test:test@" + e.Addr() + "/testdb?sslmode=disable"
}

// RedisRequest redis:7-alpine
func RedisRequest() testcontainers.ContainerRequest {
	return testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	}
}

// MongoRequest mongo:7
func MongoRequest() testcontainers.ContainerRequest {
	return testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections"),
	}
}
