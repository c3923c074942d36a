// Package config loads env-tagged structs for ency components.
//
// Each package that needs configuration declares its own struct with
// caarlos0/env tags (toolkit.Config, mongo.Config, emulator.Config, ...) and
// the binary loads it with Load. A .env file in the working directory is read
// once, before the first parse, and never overrides variables that are
// already set in the process environment.
//
//	var cfg toolkit.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// WithPrefix namespaces a struct so the same type can be loaded twice, for
// example a primary and a cache Redis connection.
package config
