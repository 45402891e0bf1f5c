package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultServerURL is used for the generated "local" entry
const DefaultServerURL = "http://localhost:7790"

// ServerConfig server configuration
type ServerConfig struct {
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
}

// Config CLI configuration
type Config struct {
	DefaultServer string                  `yaml:"default_server"`
	Servers       map[string]ServerConfig `yaml:"servers"`
	configPath    string
}

// getConfigPath gets the configuration file path
func getConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	configDir := filepath.Join(homeDir, ".ramadanprep")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", err
	}

	return filepath.Join(configDir, "config.yaml"), nil
}

// LoadConfig loads ~/.ramadanprep/config.yaml, creating it on first use
func LoadConfig() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFrom(configPath)
}

// LoadConfigFrom loads the configuration at configPath, creating a default one when missing
func LoadConfigFrom(configPath string) (*Config, error) {
	cfg := &Config{
		configPath: configPath,
		Servers:    make(map[string]ServerConfig),
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg.DefaultServer = "local"
		cfg.Servers["local"] = ServerConfig{
			URL:         DefaultServerURL,
			Description: "Local RamadanPrep server",
		}
		if err := cfg.Save(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}
	if cfg.Servers == nil {
		cfg.Servers = make(map[string]ServerConfig)
	}

	cfg.configPath = configPath
	return cfg, nil
}

// Save saves the configuration
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.configPath, data, 0600)
}

// AddServer adds a server
func (c *Config) AddServer(name, url, description string) error {
	if name == "" {
		return fmt.Errorf("server name cannot be empty")
	}
	if url == "" {
		return fmt.Errorf("server URL cannot be empty")
	}

	c.Servers[name] = ServerConfig{
		URL:         url,
		Description: description,
	}

	// If this is the first server, set it as default
	if c.DefaultServer == "" {
		c.DefaultServer = name
	}

	return c.Save()
}

// RemoveServer removes a server
func (c *Config) RemoveServer(name string) error {
	if _, exists := c.Servers[name]; !exists {
		return fmt.Errorf("server '%s' not found", name)
	}

	delete(c.Servers, name)

	if c.DefaultServer == name {
		c.DefaultServer = ""
		if names := c.ServerNames(); len(names) > 0 {
			c.DefaultServer = names[0]
		}
	}

	return c.Save()
}

// SetDefault sets the default server
func (c *Config) SetDefault(name string) error {
	if _, exists := c.Servers[name]; !exists {
		return fmt.Errorf("server '%s' not found", name)
	}

	c.DefaultServer = name
	return c.Save()
}

// GetServer gets server configuration
func (c *Config) GetServer(name string) (*ServerConfig, error) {
	if name == "" {
		name = c.DefaultServer
	}

	server, exists := c.Servers[name]
	if !exists {
		return nil, fmt.Errorf("server '%s' not found", name)
	}

	return &server, nil
}

// GetDefaultServer gets the default server configuration
func (c *Config) GetDefaultServer() (*ServerConfig, error) {
	return c.GetServer(c.DefaultServer)
}

// ServerNames lists server names in sorted order
func (c *Config) ServerNames() []string {
	names := make([]string, 0, len(c.Servers))
	for name := range c.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveServerURL picks explicit when set, otherwise the configured default
func ResolveServerURL(explicit string) string {
	if explicit != "" {
		return explicit
	}
	cfg, err := LoadConfig()
	if err != nil {
		return DefaultServerURL
	}
	server, err := cfg.GetDefaultServer()
	if err != nil || server.URL == "" {
		return DefaultServerURL
	}
	return server.URL
}
