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


// Package factory constructs inference backends from a closed set of kinds.
// It is built once at startup and passed by reference; there is no global
// registry to mutate.
package factory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/poiesic/markit/ai"
	"github.com/poiesic/markit/ai/openai"
	"github.com/poiesic/markit/ai/regexner"
)

// Kind identifies an extractor backend. The set is closed: adding a backend
// means adding a constant here and a case in the factory.
type Kind int

const (
	// KindOpenAI is an LLM-based extractor behind an OpenAI-compatible API.
	KindOpenAI Kind = iota + 1
	// KindRegex is a rule-based extractor with no model dependency.
	KindRegex
)

func (k Kind) String() string {
	switch k {
	case KindOpenAI:
		return "openai"
	case KindRegex:
		return "regex"
	default:
		return "unknown"
	}
}

// ErrUnknownKind indicates a kind outside the closed set.
var ErrUnknownKind = errors.New("unknown backend kind")

// ParseKind maps a backend name from configuration to its Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai":
		return KindOpenAI, nil
	case "regex":
		return KindRegex, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Factory builds backends for one validated configuration.
type Factory struct {
	config *ai.Config
}

// New creates a factory. The configuration is validated once here so
// construction failures surface before any batch work begins.
func New(config *ai.Config) (*Factory, error) {
	if config == nil {
		config = ai.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Factory{config: config}, nil
}

// Extractor constructs an unloaded extractor of the given kind. The caller
// owns the instance and its Load/Unload lifecycle.
func (f *Factory) Extractor(kind Kind) (ai.Extractor, error) {
	switch kind {
	case KindOpenAI:
		return openai.NewExtractor(f.config)
	case KindRegex:
		return regexner.New(f.config.Labels, f.config.UnitBudget)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}
}

// Embedder constructs an embedder of the given kind. Only LLM-backed kinds
// can embed.
func (f *Factory) Embedder(kind Kind) (ai.Embedder, error) {
	switch kind {
	case KindOpenAI:
		return openai.NewEmbedder(f.config)
	case KindRegex:
		return nil, fmt.Errorf("%w: regex backend cannot embed", ErrUnknownKind)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}
}
