package config

import (
	"log"
	"strings"
)

// Missing returns the names of required settings that are empty.
func (c Config) Missing() []string {
	var out []string
	if c.DatabaseURL == "" {
		out = append(out, "DATABASE_URL")
	}
	if len(c.JWTAccessSecret) == 0 {
		out = append(out, "JWT_SECRET")
	}
	return out
}

func MustValid(c Config) {
	if missing := c.Missing(); len(missing) > 0 {
		log.Fatalf("missing required env %s", strings.Join(missing, ", "))
	}
}
