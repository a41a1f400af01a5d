// Package profiling provides small string helpers shared by the dump parsers and analyzers.
package profiling

import "strings"

// ExtractThreadGroup derives a pool/group name from a JVM thread name by removing
// trailing counters and separators and collapsing inner numeric segments.
// For example: "pool-3-thread-17" -> "pool-N-thread", "http-nio-8080-exec-4" -> "http-nio-N-exec".
func ExtractThreadGroup(threadName string) string {
	name := threadName
	for len(name) > 0 {
		lastChar := name[len(name)-1]
		if lastChar >= '0' && lastChar <= '9' {
			name = name[:len(name)-1]
		} else if lastChar == '-' || lastChar == '_' || lastChar == '#' || lastChar == ' ' {
			name = name[:len(name)-1]
		} else {
			break
		}
	}
	if name == "" {
		return threadName
	}

	parts := strings.Split(name, "-")
	for i, p := range parts {
		if p != "" && isDigits(p) {
			parts[i] = "N"
		}
	}
	return strings.Join(parts, "-")
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// SplitTrailingGroup splits "text (inner)" into its head and the text of the last
// parenthesized group. ok is false when s does not end with ')' or has no '('.
// The head is returned with surrounding whitespace trimmed.
func SplitTrailingGroup(s string) (head, inner string, ok bool) {
	s = strings.TrimSpace(s)
	lastParen := strings.LastIndex(s, "(")
	if lastParen == -1 || !strings.HasSuffix(s, ")") {
		return s, "", false
	}
	head = strings.TrimSpace(s[:lastParen])
	inner = strings.TrimSpace(s[lastParen+1 : len(s)-1])
	return head, inner, true
}
