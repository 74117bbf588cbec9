// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `Load` validates the sections every binary needs (Client, Log).  The API
// server calls `ValidateServer` for the rest, so the CLI runs without a
// database DSN.
//
// Custom rules can be registered on `v` as the configuration surface
// grows.

package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = validator.New()

//
// public API
//

// validateStruct checks the sections shared by all binaries.
func validateStruct(c *Config) error {
	return validateSections(c.Client, c.Log)
}

// ValidateServer checks the sections only the API server needs.
func (c *Config) ValidateServer() error {
	return validateSections(c.HTTP, c.Database, c.Redis, c.Session)
}

func validateSections(sections ...any) error {
	for _, s := range sections {
		if err := v.Struct(s); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}
