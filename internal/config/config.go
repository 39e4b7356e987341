// Package config resolves the connection settings for the observability
// service. Values come from the environment first, then from an
// observability.ini file; the resolved Settings object is passed explicitly
// into client constructors rather than read from global state.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
	"gopkg.in/ini.v1"
)

// ErrConfiguration indicates that no source yielded both a server URL and
// an access token.
var ErrConfiguration = errors.New("incomplete configuration")

// FileName is the INI file consulted when the environment does not supply
// both values. It is looked up in the working directory first, then under
// $HOME/.simtrack/.
const FileName = "observability.ini"

const iniSection = "server"

// Settings is the resolved connection context for the tracking server.
type Settings struct {
	ServerURL string `env:"OBSERVABILITY_URL" ini:"url"`
	Token     string `env:"OBSERVABILITY_TOKEN" ini:"token"`
}

// Validate fails with ErrConfiguration unless both fields are populated.
func (s *Settings) Validate() error {
	if s.ServerURL == "" {
		return fmt.Errorf("%w: server URL is not set", ErrConfiguration)
	}
	if s.Token == "" {
		return fmt.Errorf("%w: access token is not set", ErrConfiguration)
	}
	return nil
}

// Normalize strips the trailing slash so paths can be appended directly.
func (s *Settings) Normalize() {
	s.ServerURL = strings.TrimRight(s.ServerURL, "/")
}

// Resolve determines the connection settings, with environment variables
// taking precedence over the INI file. It fails with ErrConfiguration when
// the merged result is incomplete.
func Resolve() (*Settings, error) {
	settings, err := Load()
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Load gathers whatever settings the environment and INI file provide
// without requiring completeness. Callers that overlay further sources
// (for example CLI flags) validate afterwards.
func Load() (*Settings, error) {
	return load(candidateFiles())
}

// ResolveFile resolves against one explicit INI file, environment still
// taking precedence.
func ResolveFile(path string) (*Settings, error) {
	settings, err := load([]string{path})
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func load(files []string) (*Settings, error) {
	settings, err := fromEnv()
	if err != nil {
		return nil, err
	}

	for _, path := range files {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		fileSettings, err := fromFile(path)
		if err != nil {
			return nil, err
		}
		// Fill only what the environment left empty.
		if err := mergo.Merge(settings, fileSettings); err != nil {
			return nil, fmt.Errorf("merging configuration sources: %w", err)
		}
		break
	}

	settings.Normalize()
	return settings, nil
}

func fromEnv() (*Settings, error) {
	settings := &Settings{}
	if err := env.Parse(settings); err != nil {
		return nil, fmt.Errorf("reading environment configuration: %w", err)
	}
	return settings, nil
}

func fromFile(path string) (*Settings, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	settings := &Settings{}
	if err := file.Section(iniSection).MapTo(settings); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return settings, nil
}

func candidateFiles() []string {
	files := []string{FileName}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".simtrack", FileName))
	}
	return files
}
