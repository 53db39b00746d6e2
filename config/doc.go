// Package config loads and validates the daemon's configuration: server
// address, logging, breaker defaults and the guarded upstream routes.
package config
