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


// Package ai defines the inference backend contracts used by the annotation
// pipeline: span extractors with an explicit load/unload lifecycle, text
// embedders, and a factory over a closed set of backend kinds.
//
// Backends are external collaborators. The pipeline never calls Extract
// before a successful Load, and never invokes one extractor instance from
// two goroutines at once.
package ai
