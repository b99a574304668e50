// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package agent

import (
	"strings"
	"unicode"
)

const fence = "```"

// ExtractSQL pulls the SQL statement out of a raw model response.
//
// When the text contains a fence, the content between the first pair is
// used; otherwise the whole text. Surrounding whitespace and a leading
// "sql" language hint are removed. Identifiers containing "sql" (mysql_users)
// are left intact. ExtractSQL(ExtractSQL(x)) == ExtractSQL(x).
func ExtractSQL(raw string) string {
	parts := strings.Split(raw, fence)
	text := parts[0]
	if len(parts) > 1 {
		text = parts[1]
	}
	text = strings.TrimSpace(text)
	for hasLanguageHint(text) {
		text = strings.TrimSpace(text[3:])
	}
	return text
}

// hasLanguageHint reports whether s starts with the token "sql" on its own.
func hasLanguageHint(s string) bool {
	if len(s) < 3 || !strings.EqualFold(s[:3], "sql") {
		return false
	}
	if len(s) == 3 {
		return true
	}
	return unicode.IsSpace(rune(s[3]))
}
