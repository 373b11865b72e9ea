package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dpb.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func TestLoadParsesNetworksAndTrunks(t *testing.T) {
	path := writeTestConfig(t, `
version: "1"
agents:
  - agent-east
  - agent-west
networks:
  east:
    backend:
      class: agent-east
    db:
      service: dpbdb
      slice: east
      terminals:
        table: east_terminals
      services:
        table: east_services
      end-points:
        table: east_endpoints
    super_users: ["admin"]
    user_groups:
      neteng: ["alice"]
    permissions:
      all: ["neteng"]
trunks:
  - name: trunk-east-west
    start_network: east
    start_terminal: t1
    end_network: west
    end_terminal: t2
    start_capacity: 100
    end_capacity: 100
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Agents) != 2 {
		t.Fatalf("Agents = %v, want 2 entries", cfg.Agents)
	}
	net, err := cfg.Network("east")
	if err != nil {
		t.Fatalf("Network(east): %v", err)
	}
	if net.Backend.Class != "agent-east" {
		t.Errorf("Backend.Class = %q, want agent-east", net.Backend.Class)
	}
	if net.DB.Terminals.Table != "east_terminals" {
		t.Errorf("DB.Terminals.Table = %q", net.DB.Terminals.Table)
	}
	if len(cfg.Trunks) != 1 || cfg.Trunks[0].Name != "trunk-east-west" {
		t.Fatalf("Trunks = %+v", cfg.Trunks)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error loading a nonexistent file")
	}
}

func TestResolveRejectsUnknownBackendAgent(t *testing.T) {
	cfg := &Config{
		Agents: []string{"agent-east"},
		Networks: map[string]*NetworkConfig{
			"east": {
				Backend: BackendConfig{Class: "agent-ghost"},
				DB:      DBConfig{Service: "dpbdb"},
			},
		},
	}
	if err := cfg.Resolve(); err == nil {
		t.Fatal("expected an error for a backend.class that names no known agent")
	}
}

func TestResolveRejectsTrunkWithUnknownNetwork(t *testing.T) {
	cfg := &Config{
		Agents: []string{"agent-east"},
		Networks: map[string]*NetworkConfig{
			"east": {Backend: BackendConfig{Class: "agent-east"}, DB: DBConfig{Service: "dpbdb"}},
		},
		Trunks: []TrunkConfig{
			{Name: "trunk1", StartNetwork: "east", EndNetwork: "ghost"},
		},
	}
	if err := cfg.Resolve(); err == nil {
		t.Fatal("expected an error for a trunk referencing an unconfigured network")
	}
}

func TestResolveAccumulatesMultipleErrors(t *testing.T) {
	cfg := &Config{
		Networks: map[string]*NetworkConfig{
			"east": {}, // missing backend.class and db.service
			"west": {}, // same
		},
	}
	err := cfg.Resolve()
	if err == nil {
		t.Fatal("expected validation errors")
	}
}

func TestNetworkNotFound(t *testing.T) {
	cfg := &Config{Networks: map[string]*NetworkConfig{}}
	if _, err := cfg.Network("missing"); err == nil {
		t.Fatal("expected a not-found error")
	}
}
