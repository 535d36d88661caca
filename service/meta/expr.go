package meta

import (
	"os"
	"strings"
)

const envPrefix = "${env."

// expandEnv replaces ${env.KEY} with the value of environment variable KEY.
// Unset variables expand to empty text; malformed references are kept as is.
func expandEnv(text string) string {
	if !strings.Contains(text, envPrefix) {
		return text
	}
	var b strings.Builder
	for {
		before, after, found := strings.Cut(text, envPrefix)
		b.WriteString(before)
		if !found {
			return b.String()
		}
		key, rest, closed := strings.Cut(after, "}")
		if !closed {
			b.WriteString(envPrefix)
			b.WriteString(after)
			return b.String()
		}
		if !isEnvKey(key) {
			b.WriteString(envPrefix)
			text = after
			continue
		}
		b.WriteString(os.Getenv(key))
		text = rest
	}
}

func isEnvKey(key string) bool {
	for _, r := range key {
		if r != '_' && (r < '0' || r > '9') && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
