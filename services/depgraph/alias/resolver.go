// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package alias matches module specifiers against configured path aliases.
//
// Patterns follow the compiler-config "paths" convention: at most one "*"
// wildcard, matched by plain prefix and suffix comparison.
package alias

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AleutianAI/uiregistry/services/depgraph/model"
)

// ErrInvalidPattern indicates an alias or target with more than one wildcard.
var ErrInvalidPattern = errors.New("invalid alias pattern")

// Match is the result of a successful alias resolution.
type Match struct {
	// Mapping is the first mapping whose pattern matched.
	Mapping model.PathMapping

	// Targets are the mapping's targets with the captured wildcard
	// substituted. Absolute, in configured order.
	Targets []string
}

type compiled struct {
	mapping  model.PathMapping
	wildcard bool
	prefix   string
	suffix   string
}

// Resolver resolves specifiers against path mappings in discovery order.
//
// Thread Safety:
//
//	Resolver is immutable after construction and safe for concurrent use.
type Resolver struct {
	patterns []compiled
}

// NewResolver compiles mappings in the given order.
//
// Outputs:
//   - *Resolver: Ready to use. An empty mapping list yields a resolver that
//     never matches.
//   - error: ErrInvalidPattern if an alias or target has more than one "*".
func NewResolver(mappings []model.PathMapping) (*Resolver, error) {
	r := &Resolver{patterns: make([]compiled, 0, len(mappings))}
	for _, m := range mappings {
		if strings.Count(m.Alias, "*") > 1 {
			return nil, fmt.Errorf("%w: %q has more than one wildcard", ErrInvalidPattern, m.Alias)
		}
		for _, target := range m.Targets {
			if strings.Count(target, "*") > 1 {
				return nil, fmt.Errorf("%w: target %q of %q has more than one wildcard", ErrInvalidPattern, target, m.Alias)
			}
		}

		c := compiled{mapping: m}
		if idx := strings.IndexByte(m.Alias, '*'); idx >= 0 {
			c.wildcard = true
			c.prefix = m.Alias[:idx]
			c.suffix = m.Alias[idx+1:]
		}
		r.patterns = append(r.patterns, c)
	}
	return r, nil
}

// Resolve returns the targets of the first mapping that matches spec.
func (r *Resolver) Resolve(spec string) (Match, bool) {
	if r == nil {
		return Match{}, false
	}
	for _, p := range r.patterns {
		captured, ok := p.match(spec)
		if !ok {
			continue
		}
		targets := make([]string, 0, len(p.mapping.Targets))
		for _, target := range p.mapping.Targets {
			if p.wildcard {
				target = strings.Replace(target, "*", captured, 1)
			}
			targets = append(targets, target)
		}
		return Match{Mapping: p.mapping, Targets: targets}, true
	}
	return Match{}, false
}

// Len returns the number of compiled mappings.
func (r *Resolver) Len() int {
	if r == nil {
		return 0
	}
	return len(r.patterns)
}

func (c compiled) match(spec string) (string, bool) {
	if !c.wildcard {
		return "", spec == c.mapping.Alias
	}
	if len(spec) < len(c.prefix)+len(c.suffix) {
		return "", false
	}
	if !strings.HasPrefix(spec, c.prefix) || !strings.HasSuffix(spec, c.suffix) {
		return "", false
	}
	return spec[len(c.prefix) : len(spec)-len(c.suffix)], true
}
