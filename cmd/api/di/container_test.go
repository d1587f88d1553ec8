package di

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"user-directory-service/internal/config"
	"user-directory-service/internal/usecase/user"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DB: config.DatabaseConfig{
			Driver:          config.DriverSQLite,
			SQLitePath:      filepath.Join(t.TempDir(), "di.db"),
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Minute,
			ConnMaxIdleTime: time.Minute,
			AutoMigrate:     true,
		},
		App:      config.AppConfig{Env: "test", HTTPPort: "0", ShutdownTimeout: time.Second},
		Security: config.SecurityConfig{BcryptCost: bcrypt.MinCost},
		List:     config.ListConfig{DefaultLimit: 5, MaxLimit: 20},
		Logger:   config.LoggerConfig{Level: "info", ServiceName: "di-test"},
	}
}

func TestNewContainer_WithoutCache(t *testing.T) {
	c, err := NewContainer(context.Background(), sqliteConfig(t), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { assert.NoError(t, c.Close()) }()

	assert.Nil(t, c.RedisClient)
	assert.NotNil(t, c.GinHandler)

	checks := c.HealthChecks()
	assert.Len(t, checks, 1)
	require.Contains(t, checks, "database")
	assert.NoError(t, checks["database"](context.Background()))

	// Migrations ran, so the directory is usable end to end
	created, err := c.UserUC.CreateUser(context.Background(), user.CreateUserRequest{
		FirstName: "Linus",
		LastName:  "Torvalds",
		Email:     "linus@example.com",
		Password:  "penguin",
	})
	require.NoError(t, err)

	got, err := c.UserUC.GetUser(context.Background(), user.GetUserRequest{ID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestNewContainer_WithCache(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)

	cfg := sqliteConfig(t)
	cfg.Redis = config.RedisConfig{Enabled: true, Host: host, Port: port, PoolSize: 2, CacheTTL: time.Minute}

	c, err := NewContainer(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { assert.NoError(t, c.Close()) }()

	require.NotNil(t, c.RedisClient)
	checks := c.HealthChecks()
	require.Contains(t, checks, "redis")
	assert.NoError(t, checks["redis"](context.Background()))

	opts := c.RouterOptions()
	assert.Equal(t, "di-test", opts.ServiceName)
	assert.False(t, opts.Release)
	assert.NotNil(t, opts.Gatherer)
	assert.NotNil(t, opts.Metrics)

	families, err := c.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.DB.Driver = "oracle"

	_, err := NewContainer(context.Background(), cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestNewContainer_RedisUnreachable(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Redis = config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: "1", CacheTTL: time.Minute}

	_, err := NewContainer(context.Background(), cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize Redis")
}
