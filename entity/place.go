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

package entity

import (
	"context"
	"strings"
	"time"

	"github.com/tomoncle/bus/database"
	"github.com/uptrace/bun"
)

// PlaceTable is the table backing Place.
const PlaceTable = "tb_place"

func init() {
	database.RegisterModel((*Place)(nil), 10)
	database.RegisterMigration(database.MigrationItem{
		Version:     "010",
		Name:        "create_place_name_index",
		Description: "Index place names for search and sort",
		Up:          createPlaceNameIndexes,
	})
}

func createPlaceNameIndexes(ctx context.Context, db bun.IDB) error {
	for _, column := range []string{"name", "name_folded"} {
		_, err := db.NewCreateIndex().
			Model((*Place)(nil)).
			Index("idx_place_" + column).
			Column(column).
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

// FoldName returns the Unicode lower case of name, as stored in name_folded
// and matched by searches. SQLite's LOWER folds ASCII only.
func FoldName(name string) string {
	return strings.ToLower(name)
}

// Place is a stop, station or terminal served by the bus network.
type Place struct {
	bun.BaseModel `bun:"table:tb_place,alias:place"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	Name       string    `bun:"name,notnull" json:"name"`
	NameFolded string    `bun:"name_folded,notnull" json:"-"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// PlaceDTO is the shape exchanged with callers. ID is nil on creation.
type PlaceDTO struct {
	ID   *int64 `json:"id,omitempty"`
	Name string `json:"name" validate:"required,max=255"`
}

// NewPlaceDTO builds the transfer shape of a stored place.
func NewPlaceDTO(p *Place) *PlaceDTO {
	id := p.ID
	return &PlaceDTO{ID: &id, Name: p.Name}
}

// CopyToEntity writes the mutable fields of the DTO onto p. The identifier
// is never copied.
func (d *PlaceDTO) CopyToEntity(p *Place) {
	p.Name = d.Name
}
