package origin

import (
	"log"
	"regexp"
)

// CompilePatterns compiles the allowed-origin patterns. Invalid patterns are
// logged and skipped rather than taking the server down.
func CompilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			log.Printf("Ignoring invalid origin pattern %q: %s", pattern, err.Error())
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled
}

// IsAllowed reports whether the given origin matches any compiled pattern.
// An empty pattern set allows every origin.
func IsAllowed(origin string, patterns []*regexp.Regexp) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, re := range patterns {
		if re.MatchString(origin) {
			return true
		}
	}
	return false
}
