// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides translation label sanitising and SQL null-type
// helpers.
package util

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// labelPolicy keeps the inline markup translators routinely embed in
// phrases and drops everything else.
var labelPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "i", "em", "strong", "u", "br", "span", "sub", "sup")
	p.AllowAttrs("class").OnElements("span")
	return p
}()

// SanitizeLabel strips unsafe markup from a translation label and trims
// surrounding whitespace. Plain text entities are decoded so "&" stays "&";
// decoding repeats until the label is stable, so escaped markup cannot
// reappear as live markup.
func SanitizeLabel(label string) string {
	clean := label
	for range 4 {
		next := html.UnescapeString(labelPolicy.Sanitize(clean))
		if next == clean {
			return strings.TrimSpace(clean)
		}
		clean = next
	}
	return strings.TrimSpace(labelPolicy.Sanitize(clean))
}

// IsBlank reports whether s is empty after trimming whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
