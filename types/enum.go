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

package types

import "strings"

// Values reported for a Direction outside Asc and Desc.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
)

// Direction is the sort direction of an order clause.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string { return d.Name() }

// Name is the SQL keyword of d.
func (d Direction) Name() string {
	switch d {
	case Asc:
		return "ASC"
	case Desc:
		return "DESC"
	default:
		return IllegalName
	}
}

// ParseDirection accepts "asc"/"desc" in any case. Empty input means Asc.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ASC":
		return Asc, true
	case "DESC":
		return Desc, true
	default:
		return Direction(IllegalValue), false
	}
}
