// Copyright 2025, the fabdeploy authors.  All rights reserved.

// Package workspace loads per-environment deployment configuration.  One JSON file per environment
// lives in the configuration directory (`config/dev.json`, `config/uat.json`, `config/prod.json`),
// naming the target workspace, the environment's parameter table, and optional service-principal
// wiring.
package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/fabdeploy/fabdeploy/pkg/util/logging"
)

// ValidEnvironments lists the deployable environments, in promotion order.
var ValidEnvironments = []string{"dev", "uat", "prod"}

// DefaultArtifactsRoot is the folder under the artifacts directory holding artifact sources.
const DefaultArtifactsRoot = "wsartifacts"

// Workspace identifies the target workspace on the remote platform.
type Workspace struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CapacityID string `json:"capacity_id,omitempty"`
}

// ServicePrincipal wires an environment to its deployment identity.  The secret itself never
// appears in configuration; SecretEnvVar names the environment variable holding it.
type ServicePrincipal struct {
	ClientID     string `json:"client_id"`
	TenantID     string `json:"tenant_id"`
	SecretEnvVar string `json:"secret_env_var"`
}

// LakehouseRef pins a lakehouse name to its known remote ID in this environment.
type LakehouseRef struct {
	ID string `json:"id"`
}

// Config is one environment's deployment configuration.
type Config struct {
	Environment      string                  `json:"-"`
	Workspace        Workspace               `json:"workspace"`
	ArtifactsRoot    string                  `json:"artifacts_root_folder,omitempty"`
	Parameters       map[string]string       `json:"parameters,omitempty"`
	Connections      map[string]string       `json:"connections,omitempty"`
	Lakehouses       map[string]LakehouseRef `json:"lakehouses,omitempty"`
	ServicePrincipal *ServicePrincipal       `json:"service_principal,omitempty"`
}

// Load reads and validates the configuration for the given environment.
func Load(configDir, env string) (*Config, error) {
	env = strings.ToLower(env)
	if !validEnv(env) {
		return nil, errors.Errorf("invalid environment '%s': must be one of %s",
			env, strings.Join(ValidEnvironments, ", "))
	}

	path := filepath.Join(configDir, env+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading configuration file %s", path)
	}

	cfg := &Config{Environment: env}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing configuration file %s", path)
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid configuration in %s", path)
	}
	if cfg.ArtifactsRoot == "" {
		cfg.ArtifactsRoot = DefaultArtifactsRoot
	}

	logging.V(3).Infof("loaded configuration for '%s': workspace %s (%s)",
		env, cfg.Workspace.Name, cfg.Workspace.ID)
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Workspace.ID == "" || c.Workspace.Name == "" {
		return errors.New("workspace configuration must include 'id' and 'name'")
	}
	return nil
}

// LakehouseID returns the configured remote ID for a lakehouse, or empty if unknown.
func (c *Config) LakehouseID(name string) string {
	return c.Lakehouses[name].ID
}

func validEnv(env string) bool {
	for _, e := range ValidEnvironments {
		if e == env {
			return true
		}
	}
	return false
}
