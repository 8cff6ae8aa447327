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

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/tomoncle/bus/database"
	"github.com/tomoncle/bus/types"
	"gopkg.in/yaml.v3"
)

// AppConfig is the YAML configuration of the place catalogue.
type AppConfig struct {
	Database database.Config `yaml:"database"`
	Log      LogConfig       `yaml:"log"`
	Paging   PagingConfig    `yaml:"paging"`
}

// LogConfig sets the level and console format of every named logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// PagingConfig holds the page size used when a caller gives none.
type PagingConfig struct {
	DefaultSize int `yaml:"default_size"`
}

var _ database.AbstractDatabaseConfigProvider = (*AppConfig)(nil)

// ConfigLoader returns the database part of the configuration.
func (c *AppConfig) ConfigLoader() *database.Config {
	return &c.Database
}

// Default returns the configuration used when no file is given: an
// in-memory SQLite database migrated on startup.
func Default() *AppConfig {
	cfg := &AppConfig{
		Database: *database.DefaultConfig(),
		Log:      LogConfig{Level: "info", Format: "text"},
		Paging:   PagingConfig{DefaultSize: types.DefaultPageSize},
	}
	cfg.Database.ConnectionConfig.Type = "sqlite"
	cfg.Database.ConnectionConfig.DBName = ":memory:"
	cfg.Database.DataMigrateConfig.EnableMigrateOnStartup = true
	return cfg
}

// Load reads the YAML file at path. Settings left out of the file fall back
// to the defaults of Default; an empty path returns Default itself.
func Load(path string) (*AppConfig, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := &AppConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail late.
func (c *AppConfig) Validate() error {
	switch c.Database.ConnectionConfig.Type {
	case "mysql", "postgres", "postgresql":
		if c.Database.ConnectionConfig.Host == "" {
			return fmt.Errorf("database host is required for %s", c.Database.ConnectionConfig.Type)
		}
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("unsupported database type: %q", c.Database.ConnectionConfig.Type)
	}
	if c.Paging.DefaultSize < 1 || c.Paging.DefaultSize > types.MaxPageSize {
		return fmt.Errorf("paging.default_size must be between 1 and %d", types.MaxPageSize)
	}
	return nil
}

func applyDefaults(cfg *AppConfig) {
	def := database.DefaultConnectionConfig()
	conn := &cfg.Database.ConnectionConfig
	if conn.Type == "" {
		conn.Type = "sqlite"
	}
	if conn.DBName == "" && (conn.Type == "sqlite" || conn.Type == "sqlite3") {
		conn.DBName = ":memory:"
	}
	defaultInt(&conn.MaxIdleConns, def.MaxIdleConns)
	defaultInt(&conn.MaxOpenConns, def.MaxOpenConns)
	defaultDuration(&conn.ConnMaxLifetime, def.ConnMaxLifetime)
	defaultDuration(&conn.ConnMaxIdleTime, def.ConnMaxIdleTime)
	defaultDuration(&conn.ConnectTimeout, def.ConnectTimeout)
	defaultDuration(&conn.ReadTimeout, def.ReadTimeout)
	defaultDuration(&conn.WriteTimeout, def.WriteTimeout)
	defaultDuration(&conn.SlowQueryTime, def.SlowQueryTime)
	if conn.Port == 0 {
		switch conn.Type {
		case "mysql":
			conn.Port = 3306
		case "postgres", "postgresql":
			conn.Port = 5432
		}
	}
	if cfg.Database.DataInitConfig.Filepath == "" {
		cfg.Database.DataInitConfig.Filepath = "configs/sql"
	}
	if cfg.Database.DataInitConfig.Environment == "" {
		cfg.Database.DataInitConfig.Environment = "prod"
	}
	if cfg.Paging.DefaultSize == 0 {
		cfg.Paging.DefaultSize = types.DefaultPageSize
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func defaultInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func defaultDuration(v *time.Duration, def time.Duration) {
	if *v == 0 {
		*v = def
	}
}
