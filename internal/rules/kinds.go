// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package rules implements the grammar predicates translations are bound to
// and the resolver that turns a stored rule-set into live rules.
//
// Rule kinds form a closed set. Evaluation is a pure function of the rule's
// kind, keyword and locale and the token value being tested.
package rules

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/olegiv/oloc-go/internal/model"
)

// Number keywords. The CLDR categories are evaluated for the rule's locale.
const (
	NumberZero     = "zero"
	NumberOne      = "one"
	NumberTwo      = "two"
	NumberFew      = "few"
	NumberMany     = "many"
	NumberOther    = "other"
	NumberSingular = "singular"
	NumberPlural   = "plural"
)

// Gender keywords.
const (
	GenderMale    = "male"
	GenderFemale  = "female"
	GenderNeutral = "neutral"
	GenderUnknown = "unknown"
)

// Value keywords.
const (
	StartsWithVowel     = "starts_with_vowel"
	StartsWithConsonant = "starts_with_consonant"
	EndsWithVowel       = "ends_with_vowel"
	EndsWithConsonant   = "ends_with_consonant"
)

var keywords = map[model.RuleKind][]string{
	model.RuleKindNumber: {NumberZero, NumberOne, NumberTwo, NumberFew, NumberMany, NumberOther, NumberSingular, NumberPlural},
	model.RuleKindGender: {GenderMale, GenderFemale, GenderNeutral, GenderUnknown},
	model.RuleKindCase: {
		"nominative", "genitive", "dative", "accusative",
		"instrumental", "prepositional", "locative", "vocative",
	},
	model.RuleKindValue: {StartsWithVowel, StartsWithConsonant, EndsWithVowel, EndsWithConsonant},
}

// Kinds returns the supported rule kinds.
func Kinds() []model.RuleKind {
	return []model.RuleKind{model.RuleKindNumber, model.RuleKindGender, model.RuleKindCase, model.RuleKindValue}
}

// Keywords returns the keywords of a kind, or nil for an unknown kind.
func Keywords(kind model.RuleKind) []string {
	return slices.Clone(keywords[kind])
}

// Valid reports whether kind and keyword identify a supported predicate.
func Valid(kind model.RuleKind, keyword string) bool {
	return slices.Contains(keywords[kind], keyword)
}

// Evaluate tests a token value against a rule. A nil value, a value of the
// wrong shape and an unknown kind or keyword all evaluate to false.
func Evaluate(rule model.Rule, value any) bool {
	if value == nil || !Valid(rule.Kind, rule.Keyword) {
		return false
	}

	switch rule.Kind {
	case model.RuleKindNumber:
		return evaluateNumber(rule.Locale, rule.Keyword, value)
	case model.RuleKindGender:
		return evaluateGender(rule.Keyword, value)
	case model.RuleKindCase:
		c, ok := attribute(value, "case")
		return ok && strings.EqualFold(c, rule.Keyword)
	case model.RuleKindValue:
		return evaluateValue(rule.Keyword, value)
	}
	return false
}

// Describe renders the predicate in plain English, e.g. "is plural".
func Describe(rule model.Rule) string {
	switch rule.Kind {
	case model.RuleKindNumber:
		switch rule.Keyword {
		case NumberSingular:
			return "is singular"
		case NumberPlural:
			return "is plural"
		case NumberZero:
			return "is zero"
		default:
			return fmt.Sprintf("is in the %q plural form", rule.Keyword)
		}
	case model.RuleKindGender:
		if rule.Keyword == GenderUnknown {
			return "is of unknown gender"
		}
		return "is " + rule.Keyword
	case model.RuleKindCase:
		return "is in the " + rule.Keyword + " case"
	case model.RuleKindValue:
		return strings.ReplaceAll(strings.Replace(rule.Keyword, "_with_", " with a ", 1), "_", " ")
	}
	return fmt.Sprintf("matches %s %s", rule.Kind, rule.Keyword)
}

// operands are the CLDR plural operands of a decimal number.
type operands struct {
	i, v, w, f, t int
	zero          bool
}

func evaluateNumber(locale, keyword string, value any) bool {
	op, ok := parseOperands(value)
	if !ok {
		return false
	}

	form := plural.Cardinal.MatchPlural(pluralTag(locale), op.i, op.v, op.w, op.f, op.t)
	switch keyword {
	case NumberSingular:
		return form == plural.One
	case NumberPlural:
		return form != plural.One
	case NumberZero:
		return form == plural.Zero || op.zero
	case NumberOne:
		return form == plural.One
	case NumberTwo:
		return form == plural.Two
	case NumberFew:
		return form == plural.Few
	case NumberMany:
		return form == plural.Many
	case NumberOther:
		return form == plural.Other
	}
	return false
}

func pluralTag(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	return tag
}

func parseOperands(value any) (operands, bool) {
	var s string
	switch n := value.(type) {
	case int:
		s = strconv.FormatInt(int64(n), 10)
	case int8:
		s = strconv.FormatInt(int64(n), 10)
	case int16:
		s = strconv.FormatInt(int64(n), 10)
	case int32:
		s = strconv.FormatInt(int64(n), 10)
	case int64:
		s = strconv.FormatInt(n, 10)
	case uint:
		s = strconv.FormatUint(uint64(n), 10)
	case uint8:
		s = strconv.FormatUint(uint64(n), 10)
	case uint16:
		s = strconv.FormatUint(uint64(n), 10)
	case uint32:
		s = strconv.FormatUint(uint64(n), 10)
	case uint64:
		s = strconv.FormatUint(n, 10)
	case float32:
		s = strconv.FormatFloat(float64(n), 'f', -1, 32)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return operands{}, false
		}
		s = strconv.FormatFloat(n, 'f', -1, 64)
	case json.Number:
		s = n.String()
	case string:
		s = strings.TrimSpace(n)
	case fmt.Stringer:
		s = strings.TrimSpace(n.String())
	default:
		return operands{}, false
	}
	return decimalOperands(s)
}

// decimalOperands derives the operands from a plain decimal literal such
// as "-12.50". Exponent notation is normalised through ParseFloat.
func decimalOperands(s string) (operands, bool) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")
	if s == "" {
		return operands{}, false
	}
	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return operands{}, false
		}
		s = strconv.FormatFloat(math.Abs(f), 'f', -1, 64)
	}

	intPart, frac, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	if !allDigits(intPart) || !allDigits(frac) {
		return operands{}, false
	}

	trimmed := strings.TrimRight(frac, "0")
	op := operands{
		i: atoiCapped(intPart),
		v: len(frac),
		w: len(trimmed),
		f: atoiCapped(frac),
		t: atoiCapped(trimmed),
	}
	op.zero = strings.Trim(intPart, "0") == "" && trimmed == ""
	return op, true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func atoiCapped(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// only the magnitude class matters to plural rules
		return math.MaxInt32
	}
	return n
}

type genderer interface{ Gender() string }

type caser interface{ Case() string }

// attribute extracts a named string property from a token value: the value
// itself when it is a string, a map entry, or the matching method.
func attribute(value any, name string) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case map[string]any:
		s, ok := v[name].(string)
		return s, ok
	case map[string]string:
		s, ok := v[name]
		return s, ok
	}
	switch name {
	case "gender":
		if g, ok := value.(genderer); ok {
			return g.Gender(), true
		}
	case "case":
		if c, ok := value.(caser); ok {
			return c.Case(), true
		}
	}
	return "", false
}

func evaluateGender(keyword string, value any) bool {
	g, ok := attribute(value, "gender")
	if !ok {
		return false
	}
	g = strings.ToLower(strings.TrimSpace(g))
	if keyword == GenderUnknown {
		return g != GenderMale && g != GenderFemale && g != GenderNeutral
	}
	return g == keyword
}

func evaluateValue(keyword string, value any) bool {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case fmt.Stringer:
		s = v.String()
	default:
		return false
	}

	letters := []rune(strings.TrimSpace(s))
	if len(letters) == 0 {
		return false
	}

	var r rune
	if strings.HasPrefix(keyword, "starts_") {
		r = letters[0]
	} else {
		r = letters[len(letters)-1]
	}
	if !unicode.IsLetter(r) {
		return false
	}

	if strings.HasSuffix(keyword, "_vowel") {
		return isVowel(r)
	}
	return !isVowel(r)
}

const vowels = "aeiouаеёиоуыэюя"

func isVowel(r rune) bool {
	base := []rune(norm.NFD.String(string(unicode.ToLower(r))))
	return strings.ContainsRune(vowels, base[0])
}
