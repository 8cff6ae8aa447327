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
	"reflect"
	"slices"
	"sync"
)

type registeredModel struct {
	model    any
	priority int
}

var (
	modelsMu sync.RWMutex
	models   []registeredModel
)

// RegisterModel adds a table model, given as a nil struct pointer such as
// (*Place)(nil), to the base tables migration. Tables are created in
// ascending priority; registering the same type again replaces its
// priority.
func RegisterModel(model any, priority int) {
	modelsMu.Lock()
	defer modelsMu.Unlock()
	typ := reflect.TypeOf(model)
	for i := range models {
		if reflect.TypeOf(models[i].model) == typ {
			models[i].priority = priority
			return
		}
	}
	models = append(models, registeredModel{model: model, priority: priority})
}

// Models returns the registered models in creation order.
func Models() []any {
	modelsMu.RLock()
	sorted := slices.Clone(models)
	modelsMu.RUnlock()

	slices.SortStableFunc(sorted, func(a, b registeredModel) int {
		return cmp.Compare(a.priority, b.priority)
	})
	out := make([]any, len(sorted))
	for i, m := range sorted {
		out[i] = m.model
	}
	return out
}
