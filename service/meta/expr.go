package meta

import (
	"os"
	"strings"
	"unicode"
)

const envPrefix = "${env."

// expandEnv replaces every ${env.NAME} with the NAME environment variable,
// an unset variable expands to "". Expressions whose name is not made of
// letters, digits or '_' are kept verbatim.
func expandEnv(text string) string {
	if !strings.Contains(text, envPrefix) {
		return text
	}
	var out strings.Builder
	out.Grow(len(text))
	for {
		start := strings.Index(text, envPrefix)
		if start < 0 {
			out.WriteString(text)
			return out.String()
		}
		out.WriteString(text[:start])
		rest := text[start+len(envPrefix):]
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			out.WriteString(text[start:])
			return out.String()
		}
		name := rest[:end]
		if !isEnvName(name) {
			out.WriteString(envPrefix)
			text = rest
			continue
		}
		out.WriteString(os.Getenv(name))
		text = rest[end+1:]
	}
}

func isEnvName(name string) bool {
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}
