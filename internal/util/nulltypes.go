// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import "database/sql"

// NullableID maps an optional id to a nullable column value.
func NullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return ValidID(*id)
}

// ValidID wraps a present id.
func ValidID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: true}
}

// NullableText stores the empty string as NULL.
func NullableText(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
