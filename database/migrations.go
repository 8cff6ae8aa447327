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
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/uptrace/bun"
)

const (
	versionBaseTables = "001"
	versionSeedData   = "900"
)

var (
	registeredMigrationsMu sync.RWMutex
	registeredMigrations   []MigrationItem
)

// Migration is a row of the migration history. Its version is the key.
type Migration struct {
	bun.BaseModel `bun:"table:tb_schema_migration,alias:sm"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at"`
	Description string    `bun:"description"`
}

// MigrationFunc changes the schema or data. It receives the transaction
// that also records the migration.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

// MigrationItem is one versioned step. Versions compare as strings, so they
// are zero padded ("010", not "10").
type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
}

// RegisterMigration adds a step to every later migration run. Model
// packages call it from init; versions belong between "001" (base tables)
// and "900" (seed data).
func RegisterMigration(item MigrationItem) {
	registeredMigrationsMu.Lock()
	defer registeredMigrationsMu.Unlock()
	registeredMigrations = append(registeredMigrations, item)
}

// MigrationManager applies migrations and seed data to one database and
// records them in tb_schema_migration.
type MigrationManager struct {
	db              *bun.DB
	logger          Logger
	environment     string
	seedPath        string
	seedOnMigration bool
}

// NewMigrationManager seeds from configs/sql for the "prod" environment
// unless told otherwise. logger may be nil.
func NewMigrationManager(db *bun.DB, logger Logger) *MigrationManager {
	return &MigrationManager{
		db:          db,
		logger:      logger,
		environment: "prod",
		seedPath:    "configs/sql",
	}
}

// SetEnvironment selects the seed directory below environments/.
func (mm *MigrationManager) SetEnvironment(env string) {
	mm.environment = env
}

// SetSeedOptions sets the seed file root and whether RunMigrations also
// applies the seed step.
func (mm *MigrationManager) SetSeedOptions(path string, onMigration bool) {
	if path != "" {
		mm.seedPath = path
	}
	mm.seedOnMigration = onMigration
}

// RunMigrations applies every step not yet in the history, lowest version
// first. Each step commits together with its history row.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return ErrNotInitialized
	}
	if _, verbose := os.LookupEnv("BUNDEBUG_MIGRATION"); !verbose {
		EnableBunSqlSilent(true)
		defer EnableBunSqlSilent(false)
	}
	if err := mm.ensureHistory(ctx); err != nil {
		return err
	}

	history, err := mm.GetAppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to read migration history: %w", err)
	}
	done := make(map[string]bool, len(history))
	for _, m := range history {
		done[m.Version] = true
	}

	var ran int
	for _, step := range mm.steps() {
		if done[step.Version] {
			continue
		}
		if err := mm.apply(ctx, step); err != nil {
			return err
		}
		ran++
	}
	mm.info("Database migrations completed", "applied", ran, "recorded", len(history)+ran)
	return nil
}

// InitData applies the seed step on its own. A database whose history
// already holds it, from an earlier InitData or a seeding RunMigrations,
// is left alone.
func (mm *MigrationManager) InitData(ctx context.Context) error {
	if mm.db == nil {
		return ErrNotInitialized
	}
	if err := mm.ensureHistory(ctx); err != nil {
		return err
	}
	seeded, err := mm.db.NewSelect().
		Model((*Migration)(nil)).
		Where("version = ?", versionSeedData).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to read migration history: %w", err)
	}
	if seeded {
		mm.info("Seed data already applied", "version", versionSeedData)
		return nil
	}
	return mm.apply(ctx, mm.seedStep())
}

// GetAppliedMigrations lists the recorded migrations ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	var history []Migration
	err := mm.db.NewSelect().
		Model(&history).
		Order("version ASC").
		Scan(ctx)
	return history, err
}

func (mm *MigrationManager) ensureHistory(ctx context.Context) error {
	if _, err := mm.db.NewCreateTable().Model((*Migration)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// steps returns the base tables step, the registered steps and, when
// seeding on migration, the seed step, sorted by version.
func (mm *MigrationManager) steps() []MigrationItem {
	registeredMigrationsMu.RLock()
	steps := make([]MigrationItem, 0, len(registeredMigrations)+2)
	steps = append(steps, MigrationItem{
		Version:     versionBaseTables,
		Name:        "create_base_tables",
		Description: "Create the tables of the registered models",
		Up:          createModelTables,
	})
	steps = append(steps, registeredMigrations...)
	registeredMigrationsMu.RUnlock()

	if mm.seedOnMigration {
		steps = append(steps, mm.seedStep())
	}
	slices.SortStableFunc(steps, func(a, b MigrationItem) int {
		return cmp.Compare(a.Version, b.Version)
	})
	return steps
}

func (mm *MigrationManager) seedStep() MigrationItem {
	return MigrationItem{
		Version:     versionSeedData,
		Name:        "seed_initial_data",
		Description: "Apply the SQL seed files",
		Up:          mm.seed,
	}
}

func (mm *MigrationManager) apply(ctx context.Context, step MigrationItem) error {
	err := mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := step.Up(ctx, tx); err != nil {
			return err
		}
		record := &Migration{
			Version:     step.Version,
			Name:        step.Name,
			AppliedAt:   time.Now(),
			Description: step.Description,
		}
		_, err := tx.NewInsert().Model(record).Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", step.Version, err)
	}
	mm.info("Migration executed successfully", "version", step.Version, "name", step.Name)
	return nil
}

func createModelTables(ctx context.Context, db bun.IDB) error {
	for _, model := range Models() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %T: %w", model, err)
		}
	}
	return nil
}

func (mm *MigrationManager) seed(ctx context.Context, db bun.IDB) error {
	logger := mm.logger
	if logger == nil {
		logger = GetLogger()
	}
	runner := &seedRunner{root: mm.seedPath, environment: mm.environment, logger: logger}
	return runner.run(ctx, db)
}

func (mm *MigrationManager) info(msg string, kv ...interface{}) {
	if mm.logger != nil {
		mm.logger.Info(msg, kv...)
	}
}
