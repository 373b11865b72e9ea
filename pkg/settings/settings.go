// Package settings manages persistent user settings for the dpbctl CLI.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// DefaultConfigDir is the default directory holding the broker's
// configuration file when no override is configured.
const DefaultConfigDir = "/etc/dpb"

// Settings holds persistent user preferences
type Settings struct {
	// DefaultNetwork is the network to use when -n is not specified
	DefaultNetwork string `json:"default_network,omitempty"`

	// BrokerAddr is the dpbd REST address other tooling talks to by default.
	BrokerAddr string `json:"broker_addr,omitempty"`

	// SSHAddr is the dpbd management/control SSH address dpbctl dials by
	// default.
	SSHAddr string `json:"ssh_addr,omitempty"`

	// User is the management/control username dpbctl authenticates as.
	User string `json:"user,omitempty"`

	// ConfigDir overrides the default configuration directory
	ConfigDir string `json:"config_dir,omitempty"`

	// AuditLogPath overrides the default audit log path
	AuditLogPath string `json:"audit_log_path,omitempty"`

	// AuditMaxSizeMB is the max audit log size in MB before rotation (default: 10)
	AuditMaxSizeMB int `json:"audit_max_size_mb,omitempty"`

	// AuditMaxBackups is the max number of rotated audit log files (default: 10)
	AuditMaxBackups int `json:"audit_max_backups,omitempty"`
}

const (
	// DefaultAuditMaxSizeMB is the default maximum audit log size in megabytes.
	DefaultAuditMaxSizeMB = 10

	// DefaultAuditMaxBackups is the default maximum number of rotated audit log files.
	DefaultAuditMaxBackups = 10

	// DefaultBrokerAddr is the REST address other tooling targets absent
	// any override.
	DefaultBrokerAddr = "http://localhost:8080"

	// DefaultSSHAddr is the management/control SSH address dpbctl dials
	// absent any override.
	DefaultSSHAddr = "localhost:2222"
)

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "dpb_settings.json"
	}
	return filepath.Join(home, ".dpb", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty settings if file doesn't exist
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetConfigDir returns the configuration directory (with fallback)
func (s *Settings) GetConfigDir() string {
	if s.ConfigDir != "" {
		return s.ConfigDir
	}
	return DefaultConfigDir
}

// GetBrokerAddr returns the broker REST address (with fallback)
func (s *Settings) GetBrokerAddr() string {
	if s.BrokerAddr != "" {
		return s.BrokerAddr
	}
	return DefaultBrokerAddr
}

// GetSSHAddr returns the management/control SSH address (with fallback)
func (s *Settings) GetSSHAddr() string {
	if s.SSHAddr != "" {
		return s.SSHAddr
	}
	return DefaultSSHAddr
}

// GetAuditLogPath returns the audit log path with a fallback default.
// The default depends on configDir: if non-empty, uses configDir/audit.log;
// otherwise uses /var/log/dpb/audit.log.
func (s *Settings) GetAuditLogPath(configDir string) string {
	if s.AuditLogPath != "" {
		return s.AuditLogPath
	}
	if configDir != "" {
		return configDir + "/audit.log"
	}
	return "/var/log/dpb/audit.log"
}

// GetAuditMaxSizeMB returns the audit max size in MB with a default of 10.
func (s *Settings) GetAuditMaxSizeMB() int {
	if s.AuditMaxSizeMB > 0 {
		return s.AuditMaxSizeMB
	}
	return DefaultAuditMaxSizeMB
}

// GetAuditMaxBackups returns the audit max backups with a default of 10.
func (s *Settings) GetAuditMaxBackups() int {
	if s.AuditMaxBackups > 0 {
		return s.AuditMaxBackups
	}
	return DefaultAuditMaxBackups
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
