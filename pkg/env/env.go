// Package env reads process environment overrides that live outside the
// typed config, such as a platform-injected PORT.
package env

import "os"

// Get returns the named variable, falling back when unset or empty.
func Get(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
