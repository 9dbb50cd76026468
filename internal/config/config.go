package config

import (
	"fmt"
	"os"
	"time"

	"gntrecon/internal/rapi"
	"gntrecon/internal/spec"

	"gopkg.in/yaml.v2"
)

// SpecDefaults fill in optional instance-spec fields the manifest
// leaves blank.
type SpecDefaults struct {
	DiskTemplate string `yaml:"disk_template"`
	Hypervisor   string `yaml:"hypervisor"`
	OSType       string `yaml:"os_type"`
	IAllocator   string `yaml:"iallocator"`
}

// Config contains application configuration
type Config struct {
	// RAPI connection parameters
	Address   string `yaml:"address"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	VerifyTLS bool   `yaml:"verify_tls"`

	// Job handling
	JobTimeoutSeconds int  `yaml:"job_timeout"`
	PollIntervalSecs  int  `yaml:"poll_interval"`
	Wait              bool `yaml:"wait"`

	// Max number of concurrent reconciliations
	MaxWorkers int `yaml:"max_workers"`

	// Default instance parameters
	Defaults SpecDefaults `yaml:"defaults"`
}

// Load loads configuration from a YAML file. The path comes from
// CONFIG_PATH, falling back to ./gntrecon.yaml; a missing file leaves
// the defaults in place. GNT_RAPI_* environment variables override the
// file so credentials can stay out of it.
func Load() (*Config, error) {
	config := &Config{
		Address:           "localhost",
		Port:              rapi.DefaultPort,
		JobTimeoutSeconds: 300,
		PollIntervalSecs:  2,
		Wait:              true,
		MaxWorkers:        5,
		Defaults: SpecDefaults{
			DiskTemplate: string(spec.TemplatePlain),
			Hypervisor:   string(spec.HypervisorKVM),
			IAllocator:   "hail",
		},
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "gntrecon.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %v", err)
		}
	}

	// Expand environment variables in string fields
	config.Address = os.ExpandEnv(config.Address)
	config.User = os.ExpandEnv(config.User)
	config.Password = os.ExpandEnv(config.Password)

	// Override with environment variables if set
	if addr := os.Getenv("GNT_RAPI_ADDRESS"); addr != "" {
		config.Address = addr
	}
	if user := os.Getenv("GNT_RAPI_USER"); user != "" {
		config.User = user
	}
	if password := os.Getenv("GNT_RAPI_PASSWORD"); password != "" {
		config.Password = password
	}

	// Validate required parameters
	if config.Address == "" {
		return nil, fmt.Errorf("RAPI address is required (set address in config file or GNT_RAPI_ADDRESS environment variable)")
	}
	if config.JobTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("job_timeout must be positive")
	}
	if config.PollIntervalSecs <= 0 {
		return nil, fmt.Errorf("poll_interval must be positive")
	}

	return config, nil
}

// ClientConfig maps the configuration onto the transport's parameters.
func (c *Config) ClientConfig() rapi.Config {
	return rapi.Config{
		Address: c.Address,
		Port:    c.Port,
		Credentials: rapi.Credentials{
			User:     c.User,
			Password: c.Password,
		},
		VerifyTLS: c.VerifyTLS,
	}
}

// JobTimeout returns the poll ceiling as a duration.
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.JobTimeoutSeconds) * time.Second
}

// PollInterval returns the poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}

// ApplyDefaults fills blank optional fields of a spec from the
// configured defaults. Required fields are left alone so validation
// still catches a genuinely incomplete spec.
func (c *Config) ApplyDefaults(s *spec.InstanceSpec) {
	if s.DiskTemplate == "" {
		s.DiskTemplate = spec.DiskTemplate(c.Defaults.DiskTemplate)
	}
	if s.Hypervisor == "" {
		s.Hypervisor = spec.Hypervisor(c.Defaults.Hypervisor)
	}
	if s.OSType == "" {
		s.OSType = c.Defaults.OSType
	}
	if s.IAllocator == "" && s.PNode == "" {
		s.IAllocator = c.Defaults.IAllocator
	}
}
