package core

import (
	"strings"

	"github.com/google/uuid"
)

// NewJobName returns a human readable job label: the function name reduced
// to characters schedulers accept, followed by a random UUID in hex.
func NewJobName(fn string) string {
	id := uuid.New()
	return SanitizeName(fn) + "_" + strings.ReplaceAll(id.String(), "-", "")
}

// SanitizeName maps a function name onto [A-Za-z0-9_-], starting with a letter.
func SanitizeName(fn string) string {
	var b strings.Builder
	for _, r := range fn {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" || !isLetter(name[0]) {
		name = "j" + name
	}
	return name
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
