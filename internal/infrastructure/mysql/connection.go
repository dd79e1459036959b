package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"webshop/internal/config"
)

const pingTimeout = 5 * time.Second

// Manager owns the connection pool and hands out scoped transactions.
type Manager struct {
	db        *sqlx.DB
	txTimeout time.Duration
	logger    *zap.Logger
}

// DSN renders the driver connection string for cfg.
func DSN(cfg config.DatabaseConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Collation = "utf8mb4_unicode_ci"
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

func NewManager(cfg config.DatabaseConfig, logger *zap.Logger) (*Manager, error) {
	db, err := sqlx.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("database connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Name),
		zap.Int("maxOpenConns", cfg.MaxOpenConns))

	return NewManagerFromDB(db, cfg.TxTimeout, logger), nil
}

// NewManagerFromDB wraps an already opened pool.
func NewManagerFromDB(db *sqlx.DB, txTimeout time.Duration, logger *zap.Logger) *Manager {
	return &Manager{db: db, txTimeout: txTimeout, logger: logger}
}

func (m *Manager) DB() *sqlx.DB {
	return m.db
}

func (m *Manager) Close() error {
	return m.db.Close()
}

// WithTx runs fn inside a READ COMMITTED transaction. The transaction is
// committed when fn returns nil and rolled back on every other exit path,
// panics included. Driver errors come back classified.
func (m *Manager) WithTx(ctx context.Context, readOnly bool, fn func(ctx context.Context, ex Executor) error) (err error) {
	if m.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.txTimeout)
		defer cancel()
	}

	tx, err := m.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted, ReadOnly: readOnly})
	if err != nil {
		m.logger.Error("failed to begin transaction", zap.Error(err))
		return Classify(err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				m.logger.Error("failed to roll back transaction", zap.Error(rbErr))
			}
		}
	}()

	if err = fn(ctx, &Session{tx: tx}); err != nil {
		return Classify(err)
	}

	if err = tx.Commit(); err != nil {
		m.logger.Error("failed to commit transaction", zap.Error(err))
		return Classify(err)
	}
	return nil
}
