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
	"bufio"
	"cmp"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/uptrace/bun"
)

const (
	commonSeedDir  = "common"
	unorderedSeeds = 999
)

// seedFile is one SQL file below the seed root. Files run by directory
// (common first), then by the numeric prefix of their name, then by name.
type seedFile struct {
	path  string
	name  string
	dir   string
	order int
}

// seedRunner applies the SQL files of <root>/common and
// <root>/environments/<environment>. File contents are text/template
// documents rendered with the process environment plus ENVIRONMENT and
// TIMESTAMP.
type seedRunner struct {
	root        string
	environment string
	logger      Logger
}

func (s *seedRunner) files() ([]seedFile, error) {
	common, err := collectSeedFiles(filepath.Join(s.root, commonSeedDir), commonSeedDir)
	if err != nil {
		return nil, err
	}
	env, err := collectSeedFiles(filepath.Join(s.root, "environments", s.environment), s.environment)
	if err != nil {
		return nil, err
	}
	sortSeedFiles(common)
	sortSeedFiles(env)
	return append(common, env...), nil
}

func collectSeedFiles(dir, label string) ([]seedFile, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	var files []seedFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".sql") {
			return nil
		}
		files = append(files, seedFile{path: path, name: d.Name(), dir: label, order: seedOrder(d.Name())})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list seed files in %s: %w", dir, err)
	}
	return files, nil
}

func sortSeedFiles(files []seedFile) {
	slices.SortStableFunc(files, func(a, b seedFile) int {
		return cmp.Or(cmp.Compare(a.order, b.order), cmp.Compare(a.name, b.name))
	})
}

// seedOrder reads the "NNN_" prefix of name.
func seedOrder(name string) int {
	prefix, _, found := strings.Cut(name, "_")
	if !found {
		return unorderedSeeds
	}
	n, err := strconv.Atoi(prefix)
	if err != nil {
		return unorderedSeeds
	}
	return n
}

// run executes every seed statement on db. Callers pass a transaction so
// that a failing file leaves nothing behind.
func (s *seedRunner) run(ctx context.Context, db bun.IDB) error {
	files, err := s.files()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		s.logger.Info("No seed files found", "root", s.root, "environment", s.environment)
		return nil
	}
	for _, f := range files {
		start := time.Now()
		rows, err := s.apply(ctx, db, f)
		if err != nil {
			return fmt.Errorf("seed file %s: %w", f.path, err)
		}
		s.logger.Info("Seed file applied", "file", f.dir+"/"+f.name, "rows", rows, "duration", time.Since(start).String())
	}
	s.logger.Info("Seed data applied", "files", len(files), "environment", s.environment)
	return nil
}

func (s *seedRunner) apply(ctx context.Context, db bun.IDB, f seedFile) (int64, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return 0, err
	}
	content, err := s.render(f.name, string(raw))
	if err != nil {
		return 0, err
	}
	var rows int64
	for _, stmt := range splitSQLStatements(content) {
		res, err := db.ExecContext(ctx, stmt)
		if err != nil {
			return rows, fmt.Errorf("statement %q: %w", stmt, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			rows += n
		}
	}
	return rows, nil
}

func (s *seedRunner) render(name, content string) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	vars["ENVIRONMENT"] = s.environment
	vars["TIMESTAMP"] = time.Now().Format(time.DateTime)

	var b strings.Builder
	if err := tmpl.Execute(&b, vars); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return b.String(), nil
}

// splitSQLStatements joins lines into statements ending with ";". Blank
// lines and "--" comment lines are dropped; a trailing statement without
// ";" is kept.
func splitSQLStatements(content string) []string {
	var (
		statements []string
		current    []string
	)
	flush := func() {
		if len(current) > 0 {
			statements = append(statements, strings.Join(current, " "))
			current = current[:0]
		}
	}
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		current = append(current, line)
		if strings.HasSuffix(line, ";") {
			flush()
		}
	}
	flush()
	return statements
}
