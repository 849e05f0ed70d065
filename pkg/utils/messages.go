package utils

import "strings"

// DefaultMessages is the message pool used when a request brings none.
var DefaultMessages = []string{
	"Update documentation",
	"Fix typo",
	"Refactor code",
	"Add comments",
	"Update README",
	"Fix bug",
	"Improve performance",
	"Add tests",
	"Update dependencies",
	"Clean up code",
}

// MessagePool trims custom messages and drops blank ones, falling back to DefaultMessages.
func MessagePool(custom []string) []string {
	var pool []string
	for _, m := range custom {
		if m = strings.TrimSpace(m); m != "" {
			pool = append(pool, m)
		}
	}
	if len(pool) == 0 {
		return append([]string(nil), DefaultMessages...)
	}
	return pool
}

// SplitMessages splits text into one message per line.
func SplitMessages(text string) []string {
	return MessagePool(strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n"))
}
