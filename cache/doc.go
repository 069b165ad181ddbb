// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package cache defines the durable annotation store contract and its
// backends' shared types. Annotations are keyed by the
// (model, collection, field, document) tuple; each backend decides the
// physical layout.
//
// Two backends exist: the sharded append-only file store in cache/shard,
// tuned for batch workloads, and the BadgerDB store in cache/badger for
// random-access lookups.
package cache
