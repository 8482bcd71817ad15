// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package rules

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"strings"

	"github.com/olegiv/oloc-go/internal/model"
)

// Lookup resolves rule identifiers. Rule returns (nil, nil) when the rule
// no longer exists; an error means the lookup itself failed.
type Lookup interface {
	Rule(ctx context.Context, id int64) (*model.Rule, error)
}

// Entry is one resolved (token, rule) binding of a rule-set.
type Entry struct {
	Token  string
	RuleID int64
	Rule   model.Rule
}

// RuleSet is the resolved form of a translation's stored rule-set.
//
// A nil *RuleSet means the translation carries no grammatical constraints
// and matches any input. A non-nil set without entries is broken: every
// referenced rule disappeared, and it matches nothing.
type RuleSet struct {
	entries []Entry
}

// Resolve turns stored rule references into live rules. References whose
// rule no longer exists are dropped one by one.
func Resolve(ctx context.Context, lookup Lookup, refs []model.RuleRef) (*RuleSet, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	set := &RuleSet{}
	for _, ref := range refs {
		for _, id := range ref.RuleIDs {
			rule, err := lookup.Rule(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("resolving rule %d for token %q: %w", id, ref.Token, err)
			}
			if rule == nil {
				continue
			}
			set.entries = append(set.entries, Entry{Token: ref.Token, RuleID: id, Rule: *rule})
		}
	}
	return set, nil
}

// Unconstrained reports whether the set places no constraint at all.
func (s *RuleSet) Unconstrained() bool {
	return s == nil
}

// Broken reports whether the set was declared but none of its rules resolved.
func (s *RuleSet) Broken() bool {
	return s != nil && len(s.entries) == 0
}

// Entries returns a copy of the resolved entries in stored order.
func (s *RuleSet) Entries() []Entry {
	if s == nil {
		return nil
	}
	return append([]Entry{}, s.entries...)
}

// Matches reports whether every entry accepts the value supplied for its
// token. When a value is a slice or array only its first element is tested.
func (s *RuleSet) Matches(values map[string]any) bool {
	if s == nil {
		return true
	}
	if len(s.entries) == 0 {
		return false
	}
	for _, e := range s.entries {
		if !Evaluate(e.Rule, firstValue(values[e.Token])) {
			return false
		}
	}
	return true
}

func firstValue(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return nil
		}
		return rv.Index(0).Interface()
	}
	return v
}

// Projection returns the token to rule id mapping of the set. With several
// ids for one token the last one wins.
func (s *RuleSet) Projection() map[string]int64 {
	if s == nil {
		return nil
	}
	out := make(map[string]int64, len(s.entries))
	for _, e := range s.entries {
		out[e.Token] = e.RuleID
	}
	return out
}

// MatchesRuleDefinitions reports whether the set binds exactly the given
// token to rule id combination. Order and rule identity are ignored. An
// unconstrained set equals an empty definition; a broken set equals nothing.
func (s *RuleSet) MatchesRuleDefinitions(defs map[string]int64) bool {
	if s == nil {
		return len(defs) == 0
	}
	if len(s.entries) == 0 {
		return false
	}
	return maps.Equal(s.Projection(), defs)
}

// Context describes the set in plain English, for example
// "count is plural and user is female".
func (s *RuleSet) Context() string {
	if s == nil || len(s.entries) == 0 {
		return ""
	}
	parts := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		parts = append(parts, e.Token+" "+Describe(e.Rule))
	}
	return strings.Join(parts, " and ")
}

// Descriptor identifies a rule independently of any instance's ids.
type Descriptor struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}

// TokenDescriptors groups the descriptors of one token.
type TokenDescriptors struct {
	Token       string
	Descriptors []Descriptor
}

// Descriptors returns the sync-safe form of the set, grouped by token in
// order of first appearance.
func (s *RuleSet) Descriptors() []TokenDescriptors {
	if s == nil {
		return nil
	}
	out := []TokenDescriptors{}
	index := map[string]int{}
	for _, e := range s.entries {
		d := Descriptor{Type: string(e.Rule.Kind), Key: e.Rule.Keyword}
		i, ok := index[e.Token]
		if !ok {
			i = len(out)
			index[e.Token] = i
			out = append(out, TokenDescriptors{Token: e.Token})
		}
		out[i].Descriptors = append(out[i].Descriptors, d)
	}
	return out
}

// Refs converts the set back to its storage form.
func (s *RuleSet) Refs() []model.RuleRef {
	if s == nil || len(s.entries) == 0 {
		return nil
	}
	var refs []model.RuleRef
	index := map[string]int{}
	for _, e := range s.entries {
		i, ok := index[e.Token]
		if !ok {
			i = len(refs)
			index[e.Token] = i
			refs = append(refs, model.RuleRef{Token: e.Token})
		}
		refs[i].RuleIDs = append(refs[i].RuleIDs, e.RuleID)
	}
	return refs
}

// memo caches lookups for the lifetime of one operation.
type memo struct {
	next  Lookup
	rules map[int64]*model.Rule
}

// Memo wraps a lookup so repeated ids are resolved once. The returned
// lookup is not safe for concurrent use and should be dropped when the
// calling operation ends.
func Memo(next Lookup) Lookup {
	return &memo{next: next, rules: map[int64]*model.Rule{}}
}

func (m *memo) Rule(ctx context.Context, id int64) (*model.Rule, error) {
	if r, ok := m.rules[id]; ok {
		return r, nil
	}
	r, err := m.next.Rule(ctx, id)
	if err != nil {
		return nil, err
	}
	m.rules[id] = r
	return r, nil
}
