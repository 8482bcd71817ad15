// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import "testing"

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  {count} messages ", "{count} messages"},
		{"inline markup kept", "<b>{user}</b> liked it", "<b>{user}</b> liked it"},
		{"script dropped", `Hi<script>alert(1)</script>`, "Hi"},
		{"attributes dropped", `<b onclick="x()">x</b>`, "<b>x</b>"},
		{"ampersand", "Tom & Jerry", "Tom & Jerry"},
		{"only markup", "<img src=x>", ""},
		{"escaped script", "&lt;script&gt;alert(1)&lt;/script&gt;ok", "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeLabel(tt.in); got != tt.want {
				t.Errorf("SanitizeLabel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsBlank(t *testing.T) {
	if !IsBlank(" \t\n") {
		t.Error("whitespace should be blank")
	}
	if IsBlank("x") {
		t.Error("x should not be blank")
	}
}
