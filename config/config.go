// Package config loads context configuration profiles from TOML files and
// the environment. A Profile feeds mesh.Builder; explicit builder calls
// always win over profile values.
//
// Note that the domain id environment variable (MESH_DOMAIN_ID) is NOT
// read here: the middleware layer consults it itself during handle
// initialization, so that the documented resolution precedence (explicit
// override, then environment, then default) holds no matter how the
// context was built. A domain_id in a TOML profile counts as an explicit
// override.
package config

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Profile holds context construction options.
type Profile struct {
	// DomainID, when set, is applied as an explicit domain override.
	DomainID *uint32 `toml:"domain_id" env:"-"`

	// TransportURL selects the transport backend. Empty keeps the
	// in-process bus.
	TransportURL string `toml:"transport_url" env:"MESH_TRANSPORT_URL"`

	// BufferSize is the subscription buffer depth for derived endpoints.
	BufferSize int `toml:"buffer_size" env:"MESH_BUFFER_SIZE"`

	// LogLevel is the minimum log level (DEBUG, INFO, WARN, ERROR).
	LogLevel string `toml:"log_level" env:"MESH_LOG_LEVEL"`
}

var dotenvOnce sync.Once

// FromEnv builds a Profile from MESH_* environment variables. A .env file
// in the working directory is loaded once per process if present, for
// development setups.
func FromEnv() (Profile, error) {
	dotenvOnce.Do(func() {
		// The .env file is optional.
		_ = godotenv.Load()
	})

	var p Profile
	if err := env.Parse(&p); err != nil {
		return Profile{}, fmt.Errorf("parsing environment: %w", err)
	}
	return p, nil
}

// FromFile reads a TOML profile from path.
func FromFile(path string) (Profile, error) {
	var p Profile
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return Profile{}, fmt.Errorf("reading profile %s: %w", path, err)
	}
	return p, nil
}

// Merge overlays other onto p: set fields in other win.
func (p Profile) Merge(other Profile) Profile {
	if other.DomainID != nil {
		p.DomainID = other.DomainID
	}
	if other.TransportURL != "" {
		p.TransportURL = other.TransportURL
	}
	if other.BufferSize > 0 {
		p.BufferSize = other.BufferSize
	}
	if other.LogLevel != "" {
		p.LogLevel = other.LogLevel
	}
	return p
}
