// Package config loads the broker's static configuration: the agents it
// talks to, the inferior networks it aggregates (their backend, database
// placement, and authorization policy), and the trunks connecting them.
//
// Loading is two-phase. Load unmarshals the YAML file as-is; Resolve then
// checks the cross-references a flat file can't enforce on its own (a
// network's backend must name a known agent, a trunk's terminals must
// name known networks) and returns every problem found rather than
// stopping at the first one.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dpbroker/dpb/pkg/util"
)

// Config is the top-level configuration tree.
type Config struct {
	Version  string                    `yaml:"version"`
	Agents   []string                  `yaml:"agents"`
	Networks map[string]*NetworkConfig `yaml:"networks"`
	Trunks   []TrunkConfig             `yaml:"trunks"`
}

// NetworkConfig describes one inferior network this broker aggregates:
// where its backend lives, where its state is persisted, and who is
// allowed to do what against it.
type NetworkConfig struct {
	Backend     BackendConfig             `yaml:"backend"`
	DB          DBConfig                  `yaml:"db"`
	SuperUsers  []string                  `yaml:"super_users"`
	UserGroups  map[string][]string       `yaml:"user_groups"`
	Permissions map[string][]string       `yaml:"permissions"`
	Services    map[string]*ServiceConfig `yaml:"services"`
}

// BackendConfig names the agent that speaks for this network.
type BackendConfig struct {
	Class string `yaml:"class"`
}

// DBConfig places a network's persisted state: which database service and
// slice it lives in, and which table backs each of its record kinds.
type DBConfig struct {
	Service   string      `yaml:"service"`
	Slice     string      `yaml:"slice"`
	Terminals TableConfig `yaml:"terminals"`
	Services  TableConfig `yaml:"services"`
	Endpoints TableConfig `yaml:"end-points"`
}

// TableConfig names the table a record kind is stored in.
type TableConfig struct {
	Table string `yaml:"table"`
}

// ServiceConfig describes one service type a network offers, and the
// permission overrides it needs on top of the network's global ones.
type ServiceConfig struct {
	Description string              `yaml:"description"`
	Permissions map[string][]string `yaml:"permissions,omitempty"`
}

// TrunkConfig is one statically configured trunk between two terminals on
// (possibly different) networks.
type TrunkConfig struct {
	Name          string  `yaml:"name"`
	StartNetwork  string  `yaml:"start_network"`
	StartTerminal string  `yaml:"start_terminal"`
	EndNetwork    string  `yaml:"end_network"`
	EndTerminal   string  `yaml:"end_terminal"`
	StartCapacity float64 `yaml:"start_capacity"`
	EndCapacity   float64 `yaml:"end_capacity"`
}

// Load reads and parses the configuration file at path. It does not
// validate cross-references; call Resolve for that.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// Resolve validates the cross-references Load can't check on its own,
// accumulating every problem found rather than stopping at the first.
func (c *Config) Resolve() error {
	v := &util.ValidationBuilder{}

	agents := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		agents[a] = true
	}

	for name, net := range c.Networks {
		if net.Backend.Class == "" {
			v.AddErrorf("network %s: backend.class is required", name)
		} else if !agents[net.Backend.Class] {
			v.AddErrorf("network %s: backend.class %q is not a known agent", name, net.Backend.Class)
		}
		if net.DB.Service == "" {
			v.AddErrorf("network %s: db.service is required", name)
		}
	}

	for i, t := range c.Trunks {
		if t.Name == "" {
			v.AddErrorf("trunks[%d]: name is required", i)
		}
		if t.StartNetwork != "" {
			if _, ok := c.Networks[t.StartNetwork]; !ok {
				v.AddErrorf("trunk %s: start_network %q is not a configured network", t.Name, t.StartNetwork)
			}
		}
		if t.EndNetwork != "" {
			if _, ok := c.Networks[t.EndNetwork]; !ok {
				v.AddErrorf("trunk %s: end_network %q is not a configured network", t.Name, t.EndNetwork)
			}
		}
	}

	return v.Build()
}

// Network returns the named network's configuration.
func (c *Config) Network(name string) (*NetworkConfig, error) {
	net, ok := c.Networks[name]
	if !ok {
		return nil, util.NewNotFoundError("network", name)
	}
	return net, nil
}
