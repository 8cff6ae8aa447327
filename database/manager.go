/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
)

const (
	sqliteMemory       = ":memory:"
	defaultDialTimeout = 30 * time.Second
	healthPingTimeout  = 5 * time.Second
)

type defaultDatabaseManager struct {
	config   *ConnectionConfig
	dataInit DataInitConfig
	logger   Logger

	mu sync.RWMutex
	db *bun.DB
}

// ManagerOption customizes a database manager.
type ManagerOption func(*defaultDatabaseManager)

// WithDataInitConfig sets where InitData and the seed migration look for
// SQL files and which environment directory they use.
func WithDataInitConfig(cfg DataInitConfig) ManagerOption {
	return func(dm *defaultDatabaseManager) { dm.dataInit = cfg }
}

// WithLogger sets the manager logger at construction time.
func WithLogger(logger Logger) ManagerOption {
	return func(dm *defaultDatabaseManager) { dm.logger = logger }
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by Bun.
// A nil config means DefaultConnectionConfig.
func NewDatabaseManager(config *ConnectionConfig, opts ...ManagerOption) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	dm := &defaultDatabaseManager{
		config:   config,
		dataInit: DefaultConfig().DataInitConfig,
	}
	for _, opt := range opts {
		opt(dm)
	}
	return dm
}

func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.db != nil {
		return nil
	}

	if dm.config.ConnectTimeout <= 0 {
		dm.config.ConnectTimeout = defaultDialTimeout
	}
	db, err := dm.open()
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("database connection test failed: %w", err)
	}
	// SQLite enforces foreign keys only when asked to, per connection
	if db.Dialect().Name() == dialect.SQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to enable sqlite foreign keys: %w", err)
		}
	}

	dm.db = db
	dm.logInfo("Database connected successfully", "type", dm.config.Type, "host", dm.config.Host, "dbname", dm.config.DBName)
	return nil
}

// open builds the driver DSN for the configured type, applies the pool
// limits and installs the query hooks.
func (dm *defaultDatabaseManager) open() (*bun.DB, error) {
	var (
		driver string
		dsn    string
		dial   schema.Dialect
	)
	switch dm.config.Type {
	case "mysql":
		driver, dsn, dial = "mysql", mysqlDSN(dm.config), mysqldialect.New()
	case "postgres", "postgresql":
		driver, dsn, dial = "postgres", postgresDSN(dm.config), pgdialect.New()
	case "sqlite", "sqlite3":
		driver, dsn, dial = sqliteshim.ShimName, sqliteDSN(dm.config), sqlitedialect.New()
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dm.config.Type)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	configurePool(sqlDB, dm.config)

	db := bun.NewDB(sqlDB, dial)
	if dm.config.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	db.AddQueryHook(NewErrorQueryHook(dm.logger))
	if dm.config.SlowQueryTime > 0 {
		db.AddQueryHook(NewSlowQueryHook(dm.config.SlowQueryTime, dm.logger))
	}
	return db, nil
}

func mysqlDSN(cfg *ConnectionConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.Local
	mc.Timeout = cfg.ConnectTimeout
	mc.ReadTimeout = cfg.ReadTimeout
	mc.WriteTimeout = cfg.WriteTimeout
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

func postgresDSN(cfg *ConnectionConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.User(cfg.Username),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.DBName,
		RawQuery: url.Values{
			"sslmode":         {sslMode},
			"connect_timeout": {strconv.Itoa(int(cfg.ConnectTimeout.Seconds()))},
		}.Encode(),
	}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	return u.String()
}

func sqliteDSN(cfg *ConnectionConfig) string {
	if isSQLiteMemory(cfg) {
		return "file::memory:?cache=shared"
	}
	return "file:" + cfg.DBName + ".db"
}

func isSQLiteMemory(cfg *ConnectionConfig) bool {
	switch cfg.Type {
	case "sqlite", "sqlite3":
		return cfg.DBName == sqliteMemory || cfg.DBName == ""
	}
	return false
}

func configurePool(sqlDB *sql.DB, cfg *ConnectionConfig) {
	if isSQLiteMemory(cfg) {
		// a second connection would open a second, empty database
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		return
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}

func (dm *defaultDatabaseManager) Disconnect() error {
	dm.mu.Lock()
	db := dm.db
	dm.db = nil
	dm.mu.Unlock()
	if db == nil {
		return nil
	}

	if err := db.Close(); err != nil {
		dm.logError("Failed to close database connection", "error", err)
		return err
	}
	dm.logInfo("Database connection closed")
	return nil
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return ErrNotInitialized
	}
	return db.PingContext(ctx)
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

// HealthCheck pings the database and reports the round trip together with
// the applied schema version.
func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Type:          dm.config.Type,
		LastCheckTime: time.Now(),
	}
	db := dm.GetDB()
	if db == nil {
		status.LastError = ErrNotInitialized.Error()
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		status.ResponseTime = time.Since(status.LastCheckTime)
		status.LastError = err.Error()
		return status
	}
	status.ResponseTime = time.Since(status.LastCheckTime)
	status.Connected = true
	status.Healthy = true

	applied, err := NewMigrationManager(db, nil).GetAppliedMigrations(ctx)
	if err != nil {
		// an unmigrated database answers pings but has no history table
		dm.logDebug("Migration history unavailable", "error", err)
		return status
	}
	if n := len(applied); n > 0 {
		status.SchemaVersion = applied[n-1].Version
	}
	return status
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	db := dm.GetDB()
	if db == nil {
		return &DBStats{}
	}
	s := db.Stats()
	return &DBStats{
		MaxOpenConns: s.MaxOpenConnections,
		OpenConns:    s.OpenConnections,
		InUse:        s.InUse,
		Idle:         s.Idle,
		WaitCount:    s.WaitCount,
		WaitDuration: s.WaitDuration,
	}
}

func (dm *defaultDatabaseManager) RunMigrations(ctx context.Context) error {
	mm, err := dm.migrations()
	if err != nil {
		return err
	}
	return mm.RunMigrations(ctx)
}

func (dm *defaultDatabaseManager) InitData(ctx context.Context) error {
	mm, err := dm.migrations()
	if err != nil {
		return err
	}
	return mm.InitData(ctx)
}

func (dm *defaultDatabaseManager) migrations() (*MigrationManager, error) {
	db := dm.GetDB()
	if db == nil {
		return nil, ErrNotInitialized
	}
	mm := NewMigrationManager(db, dm.logger)
	mm.SetSeedOptions(dm.dataInit.Filepath, dm.dataInit.AutoInitOnMigration)
	if dm.dataInit.Environment != "" {
		mm.SetEnvironment(dm.dataInit.Environment)
	}
	return mm, nil
}

func (dm *defaultDatabaseManager) logDebug(msg string, kv ...interface{}) {
	if dm.logger != nil {
		dm.logger.Debug(msg, kv...)
	}
}

func (dm *defaultDatabaseManager) logInfo(msg string, kv ...interface{}) {
	if dm.logger != nil {
		dm.logger.Info(msg, kv...)
	}
}

func (dm *defaultDatabaseManager) logError(msg string, kv ...interface{}) {
	if dm.logger != nil {
		dm.logger.Error(msg, kv...)
	}
}
