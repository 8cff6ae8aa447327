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
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/uptrace/bun"
)

var supportedTypes = []string{"mysql", "postgres", "postgresql", "sqlite", "sqlite3"}

var (
	globalMu      sync.RWMutex
	globalManager AbstractDatabaseManager
)

func current() AbstractDatabaseManager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalManager
}

// GetDB returns the global Bun database instance, or nil before InitDB.
func GetDB() *bun.DB {
	if m := current(); m != nil {
		return m.GetDB()
	}
	return nil
}

// GetDatabaseManager returns the global database manager, or nil before
// InitDB.
func GetDatabaseManager() AbstractDatabaseManager {
	return current()
}

// NewManagerFromConfig checks the database type, applies the DB_*
// environment overrides and returns an unconnected manager logging to the
// package logger.
func NewManagerFromConfig(cfg *Config) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	conn := &cfg.ConnectionConfig
	if !slices.Contains(supportedTypes, conn.Type) {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", conn.Type, supportedTypes)
	}
	overrideFromEnv(conn)
	return NewDatabaseManager(conn, WithDataInitConfig(cfg.DataInitConfig), WithLogger(GetLogger())), nil
}

// InitDB connects the global database. Migrations run when the config
// enables them on startup, seed files when AutoInitOnStartup is set. A
// previously initialized database is closed.
func InitDB(ctx context.Context, cfg *Config) (*bun.DB, error) {
	manager, err := NewManagerFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := manager.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := prepare(ctx, manager, cfg); err != nil {
		_ = manager.Disconnect()
		return nil, err
	}

	db := manager.GetDB()
	db.RegisterModel(Models()...)

	globalMu.Lock()
	previous := globalManager
	globalManager = manager
	globalMu.Unlock()
	if previous != nil {
		_ = previous.Disconnect()
	}
	GetLogger().Info("Database initialization completed", "type", cfg.ConnectionConfig.Type)
	return db, nil
}

func prepare(ctx context.Context, manager AbstractDatabaseManager, cfg *Config) error {
	if cfg.DataMigrateConfig.EnableMigrateOnStartup {
		if err := manager.RunMigrations(ctx); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
	}
	if cfg.DataInitConfig.AutoInitOnStartup {
		if err := manager.InitData(ctx); err != nil {
			return fmt.Errorf("failed to initialize data: %w", err)
		}
	}
	return nil
}

// CloseDB closes the global database connection.
func CloseDB() error {
	globalMu.Lock()
	manager := globalManager
	globalManager = nil
	globalMu.Unlock()
	if manager == nil {
		return nil
	}
	return manager.Disconnect()
}

// GetHealthStatus pings the global database.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if m := current(); m != nil {
		return m.HealthCheck(ctx)
	}
	return &HealthStatus{LastError: ErrNotInitialized.Error(), LastCheckTime: time.Now()}
}

// GetDatabaseStats returns the pool usage of the global database.
func GetDatabaseStats() *DBStats {
	if m := current(); m != nil {
		return m.GetStats()
	}
	return &DBStats{}
}

// RunMigrations executes pending migrations on the global database.
func RunMigrations(ctx context.Context) error {
	if m := current(); m != nil {
		return m.RunMigrations(ctx)
	}
	return ErrNotInitialized
}

// InitData applies the seed files to the global database unless they have
// been applied before.
func InitData(ctx context.Context) error {
	if m := current(); m != nil {
		return m.InitData(ctx)
	}
	return ErrNotInitialized
}
