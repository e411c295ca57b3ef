// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package emailaddr canonicalizes email addresses for storage and lookup.
package emailaddr

import (
	"strings"

	"golang.org/x/text/cases"
)

// Normalize trims surrounding whitespace and case-folds the address.
//
// The same form keys the users table and the OTP entries, so "Ann@X.com" and
// "ann@x.com" are one account.
func Normalize(raw string) string {
	return cases.Fold().String(strings.TrimSpace(raw))
}
