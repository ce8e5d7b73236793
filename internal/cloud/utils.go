// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud provides components for interacting with Google Cloud services.
// This file contains the hierarchical configuration loader.
//
// Functions:
//   - fileExists: Checks whether a path exists.
//   - LoadConfig: Reads a base configuration file and then overwrites values with
//     an environment-specific file (e.g., .env.local.toml, .env.test.toml). The
//     directory and environment come from environment variables.
package cloud

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	ConfigFileBaseName  = ".env"              // The base name for configuration files (e.g., ".env.toml").
	ConfigFileExtension = ".toml"             // The file extension for configuration files.
	ConfigSeparator     = "."                 // The separator used in config file names (e.g., ".env.local.toml").
	EnvConfigFilePrefix = "GCP_CONFIG_PREFIX" // The environment variable for specifying the config directory.
	EnvConfigRuntime    = "GCP_RUNTIME"       // The environment variable for specifying the runtime context (e.g., "local", "test").
	DefaultRuntime      = "local"
)

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// ConfigFiles returns the base and runtime-specific file names for a directory.
func ConfigFiles(dir string, runtime string) (base string, env string) {
	base = filepath.Join(dir, ConfigFileBaseName+ConfigFileExtension)
	env = filepath.Join(dir, ConfigFileBaseName+ConfigSeparator+runtime+ConfigFileExtension)
	return base, env
}

// LoadConfig decodes the base configuration file and then the runtime override
// into baseConfig. Missing files are skipped; malformed files are an error.
//
// The directory is read from GCP_CONFIG_PREFIX and the runtime from GCP_RUNTIME
// (default "local").
//
// Inputs:
//   - baseConfig: A pointer to the struct to populate, usually from NewConfig.
//
// Outputs:
//   - error: A decode error naming the offending file.
func LoadConfig(baseConfig any) error {
	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = DefaultRuntime
	}
	return LoadConfigFrom(os.Getenv(EnvConfigFilePrefix), runtimeEnvironment, baseConfig)
}

// LoadConfigFrom is LoadConfig with an explicit directory and runtime.
func LoadConfigFrom(dir string, runtime string, baseConfig any) error {
	baseConfigFileName, envConfigFileName := ConfigFiles(dir, runtime)

	for _, name := range []string{baseConfigFileName, envConfigFileName} {
		if !fileExists(name) {
			slog.Debug("configuration file not found, skipping", "file", name)
			continue
		}
		if _, err := toml.DecodeFile(name, baseConfig); err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", name, err)
		}
		slog.Debug("configuration file loaded", "file", name)
	}
	return nil
}
