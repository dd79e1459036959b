package testutil

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"webshop/internal/catalog"
	"webshop/internal/config"
	"webshop/internal/infrastructure/mysql"
)

// TestDatabaseConfig points at a local MySQL database called webshop_test.
// WEBSHOP_TEST_DB_HOST, WEBSHOP_TEST_DB_PORT, WEBSHOP_TEST_DB_USER and
// WEBSHOP_TEST_DB_PASSWORD override the defaults.
func TestDatabaseConfig() config.DatabaseConfig {
	port, err := strconv.Atoi(envOr("WEBSHOP_TEST_DB_PORT", "3306"))
	if err != nil {
		port = 3306
	}
	return config.DatabaseConfig{
		Host:            envOr("WEBSHOP_TEST_DB_HOST", "localhost"),
		Port:            port,
		User:            envOr("WEBSHOP_TEST_DB_USER", "root"),
		Password:        os.Getenv("WEBSHOP_TEST_DB_PASSWORD"),
		Name:            "webshop_test",
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Minute,
		TxTimeout:       10 * time.Second,
	}
}

// SetupTestDB opens the test database and skips the test when it is not
// reachable.
func SetupTestDB(t *testing.T) *sqlx.DB {
	db, err := sqlx.Open("mysql", mysql.DSN(TestDatabaseConfig()))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// SetupTestTables creates the webshop schema.
func SetupTestTables(t *testing.T, db *sqlx.DB) {
	for _, ddl := range catalog.Default().DDL() {
		if _, err := db.Exec(ddl); err != nil {
			t.Fatalf("failed to create table: %v", err)
		}
	}
}

// CleanupTestDB empties every webshop table and closes db.
func CleanupTestDB(t *testing.T, db *sqlx.DB) {
	if db == nil {
		return
	}

	for _, table := range catalog.Default().Tables() {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM `%s`", table.Name)); err != nil {
			t.Logf("failed to clean table %s: %v", table.Name, err)
		}
	}

	db.Close()
}

// NewTestManager returns a Manager over a clean test schema; the tables are
// emptied before and after the test.
func NewTestManager(t *testing.T) *mysql.Manager {
	db := SetupTestDB(t)
	SetupTestTables(t, db)
	for _, table := range catalog.Default().Tables() {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM `%s`", table.Name)); err != nil {
			t.Fatalf("failed to clean table %s: %v", table.Name, err)
		}
	}
	t.Cleanup(func() { CleanupTestDB(t, db) })

	return mysql.NewManagerFromDB(db, TestDatabaseConfig().TxTimeout, zap.NewNop())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
