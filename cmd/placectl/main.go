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

// Command placectl manages the place catalogue from the shell.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/tomoncle/bus"
	"github.com/tomoncle/bus/config"
	"github.com/tomoncle/bus/database"
	"github.com/tomoncle/bus/entity"
	"github.com/tomoncle/bus/types"
	"github.com/tomoncle/bus/utils"
)

const usage = `usage: placectl [-config file] [-sort name,desc] <command> [args]

commands:
  migrate                  apply pending migrations
  seed                     apply the SQL seed files unless already applied
  health                   ping the database and count the places
  search [name] [page]     list places whose name contains name
  get <id>                 show one place
  create <name>            add a place
  rename <id> <name>       change the name of a place
  delete <id>              remove a place
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "placectl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("placectl", flag.ContinueOnError)
	configPath := fs.String("config", utils.EnvDefaultString("PLACECTL_CONFIG", ""), "YAML configuration file")
	sort := fs.String("sort", "", "sort as property,direction")
	size := fs.Int("size", 0, "page size")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	utils.ConfigureConsoleLogFormat(cfg.Log.Format)
	utils.ConfigureLogLevel(cfg.Log.Level)

	if _, err := database.InitDB(ctx, cfg.ConfigLoader()); err != nil {
		return err
	}
	defer func() { _ = database.CloseDB() }()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "migrate":
		return database.RunMigrations(ctx)
	case "seed":
		return database.InitData(ctx)
	}

	svc, err := bus.NewDefaultPlaceService()
	if err != nil {
		return err
	}

	switch cmd {
	case "health":
		return health(ctx, svc, out)
	case "search":
		name, page := "", 0
		if len(rest) > 0 {
			name = rest[0]
		}
		if len(rest) > 1 {
			if page, err = strconv.Atoi(rest[1]); err != nil {
				return fmt.Errorf("invalid page %q", rest[1])
			}
		}
		pageSize := *size
		if pageSize == 0 {
			pageSize = cfg.Paging.DefaultSize
		}
		var orders []string
		if *sort != "" {
			order, err := types.ParseSort(*sort)
			if err != nil {
				return err
			}
			orders = append(orders, order)
		}
		result, err := svc.FindAllPaged(ctx, name, types.NewPageRequestWithOrders(page, pageSize, orders))
		if err != nil {
			return err
		}
		return writeJSON(out, result)
	case "get":
		id, err := argID(rest)
		if err != nil {
			return err
		}
		dto, err := svc.FindByID(ctx, id)
		if err != nil {
			return err
		}
		return writeJSON(out, dto)
	case "create":
		if len(rest) < 1 {
			return errors.New("create needs a name")
		}
		dto, err := svc.Insert(ctx, &entity.PlaceDTO{Name: rest[0]})
		if err != nil {
			return err
		}
		return writeJSON(out, dto)
	case "rename":
		id, err := argID(rest)
		if err != nil {
			return err
		}
		if len(rest) < 2 {
			return errors.New("rename needs an id and a name")
		}
		dto, err := svc.Update(ctx, id, &entity.PlaceDTO{Name: rest[1]})
		if err != nil {
			return err
		}
		return writeJSON(out, dto)
	case "delete":
		id, err := argID(rest)
		if err != nil {
			return err
		}
		return svc.Delete(ctx, id)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

type healthReport struct {
	Database *database.HealthStatus `json:"database"`
	Pool     *database.DBStats      `json:"pool"`
	Places   int                    `json:"places"`
}

// health writes the database status, the pool usage and the number of
// stored places. An unreachable database is an error after the report.
func health(ctx context.Context, svc bus.PlaceService, out io.Writer) error {
	report := healthReport{
		Database: database.GetHealthStatus(ctx),
		Pool:     database.GetDatabaseStats(),
	}
	if report.Database.Healthy {
		page, err := svc.FindAllPaged(ctx, "", types.NewDefaultPageRequest(0, 1))
		if err != nil {
			return err
		}
		report.Places = page.Total
	}
	if err := writeJSON(out, report); err != nil {
		return err
	}
	if !report.Database.Healthy {
		return fmt.Errorf("database unhealthy: %s", report.Database.LastError)
	}
	return nil
}

func argID(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, errors.New("missing id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
