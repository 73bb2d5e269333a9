// Package integration runs the API and repositories against a real PostgreSQL
// started with testcontainers. Tests skip under -short.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grocery/backend/internal/infrastructure/migration"
	"github.com/grocery/backend/migrations"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// templateDB is migrated once; every test database is cloned from it
const templateDB = "grocery_template"

// server is the one container the package's tests share
var server struct {
	once      sync.Once
	container *tcpostgres.PostgresContainer
	adminDSN  string
	err       error
	databases atomic.Int64
}

// TestDB is a migrated database owned by a single test
type TestDB struct {
	DB  *gorm.DB
	SQL *sql.DB
}

// NewTestDB clones the migrated template into a fresh database that is
// dropped when the test ends, so tests never see each other's rows.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test needs docker; skipped with -short")
	}

	server.once.Do(startServer)
	require.NoError(t, server.err, "PostgreSQL container unavailable")

	name := fmt.Sprintf("grocery_test_%d", server.databases.Add(1))
	admin := openSQL(t, server.adminDSN)
	_, err := admin.Exec(fmt.Sprintf("CREATE DATABASE %s TEMPLATE %s", name, templateDB))
	require.NoError(t, err, "Failed to clone template database")

	db := openGorm(t, withDatabase(server.adminDSN, name))
	sqlDB, err := db.DB()
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = sqlDB.Close()
		if _, err := admin.Exec(fmt.Sprintf("DROP DATABASE %s WITH (FORCE)", name)); err != nil {
			t.Logf("drop %s: %v", name, err)
		}
		_ = admin.Close()
	})
	return &TestDB{DB: db, SQL: sqlDB}
}

func startServer() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase(templateDB),
		tcpostgres.WithUsername("grocery"),
		tcpostgres.WithPassword("grocery"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	if err != nil {
		server.err = fmt.Errorf("start container: %w", err)
		return
	}
	server.container = container

	templateDSN, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		server.err = fmt.Errorf("connection string: %w", err)
		return
	}
	server.adminDSN = withDatabase(templateDSN, "postgres")
	server.err = migrateTemplate(templateDSN)
}

// migrateTemplate closes its connection afterwards; PostgreSQL refuses to
// clone a database somebody is connected to.
func migrateTemplate(dsn string) error {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	m, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil {
		return err
	}
	return m.Close()
}

func stopServer() {
	if server.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = server.container.Terminate(ctx)
}

func withDatabase(dsn, name string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		panic(fmt.Sprintf("container DSN %q: %v", dsn, err))
	}
	u.Path = "/" + name
	return u.String()
}

func openSQL(t *testing.T, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	return db
}

func openGorm(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	level := gormlogger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = gormlogger.Info
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
	})
	require.NoError(t, err, "Failed to connect to test database")
	return db
}
