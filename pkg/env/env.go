package env

import (
	"os"
	"strings"
)

// Lookup returns the first non-blank value among keys.
func Lookup(keys ...string) (string, bool) {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v, true
		}
	}
	return "", false
}

// Get returns key's value, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if v, ok := Lookup(key); ok {
		return v
	}
	return fallback
}
