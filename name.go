package cmdflow

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxNameLength is the longest command or option name, in code points.
const MaxNameLength = 32

// Name rule violations, as shown to the user.
const (
	ruleLength     = "must be between 1 and 32 characters"
	ruleCharset    = "may only contain lowercase letters, numbers, hyphens and underscores"
	ruleDoubleUnd  = "must not contain consecutive underscores"
	ruleEdgeSymbol = "must not start or end with a hyphen or underscore"
)

// IsValidCommandName reports whether name is a legal slash command name.
func IsValidCommandName(name string) bool {
	return len(NameProblems(name)) == 0
}

// NameProblems lists every rule name violates, in a fixed order. Empty means valid.
func NameProblems(name string) []string {
	var problems []string
	if n := utf8.RuneCountInString(name); n < 1 || n > MaxNameLength {
		problems = append(problems, ruleLength)
	}
	for _, r := range name {
		if !nameRune(r) {
			problems = append(problems, ruleCharset)
			break
		}
	}
	if strings.Contains(name, "__") {
		problems = append(problems, ruleDoubleUnd)
	}
	if name != "" && (strings.IndexAny(name[:1], "-_") == 0 || strings.LastIndexAny(name, "-_") == len(name)-1) {
		problems = append(problems, ruleEdgeSymbol)
	}
	return problems
}

// nameRune accepts lowercase letters of any script (caseless scripts included),
// combining marks, numbers, '-' and '_'.
func nameRune(r rune) bool {
	switch {
	case r == '-' || r == '_':
		return true
	case unicode.IsLetter(r):
		return !unicode.IsUpper(r) && !unicode.IsTitle(r)
	case unicode.IsMark(r), unicode.IsNumber(r):
		return true
	}
	return false
}
