// Package config loads the shelf configuration: global defaults plus a
// registry of remote hosts, each with its own store folder, public URL
// prefix and hash prefix length.
package config

import (
	"fmt"
	"net/url"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	// DefaultPrefixLength is the hash prefix length used when neither the
	// global config nor the host overrides it
	DefaultPrefixLength = 32

	// MinPrefixLength and MaxPrefixLength bound configurable prefix
	// lengths. The upper bound equals the longest representable token.
	MinPrefixLength = 8
	MaxPrefixLength = 64
)

// Config describes the CLI configuration.
type Config struct {
	// bug in viper? Need to keep names of fields the same as the serialized names..
	DefaultHost   string           `json:"default_host" yaml:"default_host" mapstructure:"default_host"`
	PrefixLength  int              `json:"prefix_length" yaml:"prefix_length" mapstructure:"prefix_length"`
	VerifyUploads *bool            `json:"verify_uploads" yaml:"verify_uploads" mapstructure:"verify_uploads"`
	Hosts         map[string]*Host `json:"hosts" yaml:"hosts" mapstructure:"hosts"`
}

// Host is one configured remote store
type Host struct {
	// Alias is the key under which the host is registered
	Alias string `json:"-" yaml:"-" mapstructure:"-"`

	Hostname     string `json:"hostname" yaml:"hostname" mapstructure:"hostname"`
	User         string `json:"user" yaml:"user" mapstructure:"user"`
	Port         int    `json:"port" yaml:"port" mapstructure:"port"`
	Folder       string `json:"folder" yaml:"folder" mapstructure:"folder"`
	URL          string `json:"url" yaml:"url" mapstructure:"url"`
	Group        string `json:"group" yaml:"group" mapstructure:"group"`
	PrefixLength int    `json:"prefix_length" yaml:"prefix_length" mapstructure:"prefix_length"`
}

// New returns a config with defaults applied
func New() *Config {
	return &Config{
		PrefixLength: DefaultPrefixLength,
		Hosts:        map[string]*Host{},
	}
}

// FromViper unmarshals and validates the configuration read by viper
func FromViper(v *viper.Viper) (*Config, error) {
	c := New()
	if err := v.Unmarshal(c); err != nil {
		return nil, err
	}
	return c, c.normalize()
}

// FromYAML parses a raw yaml document. Used by tests and config generation.
func FromYAML(raw []byte) (*Config, error) {
	c := New()
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, err
	}
	if c.PrefixLength == 0 {
		c.PrefixLength = DefaultPrefixLength
	}
	return c, c.normalize()
}

func (c *Config) normalize() error {
	if err := checkPrefixLength("prefix_length", c.PrefixLength); err != nil {
		return err
	}
	for alias, h := range c.Hosts {
		if h == nil {
			return fmt.Errorf("hosts.%s: empty host entry", alias)
		}
		h.Alias = alias
		if h.Folder == "" {
			return fmt.Errorf("hosts.%s.folder: required key not defined", alias)
		}
		if h.URL == "" {
			return fmt.Errorf("hosts.%s.url: required key not defined", alias)
		}
		if h.PrefixLength == 0 {
			h.PrefixLength = c.PrefixLength
		}
		if err := checkPrefixLength("hosts."+alias+".prefix_length", h.PrefixLength); err != nil {
			return err
		}
	}
	if env := os.Getenv("SHELF_HOST"); env != "" {
		c.DefaultHost = env
	}
	return nil
}

// VerifyAfterUpload reports whether uploads are re-hashed remotely.
// Defaults to true when unset.
func (c *Config) VerifyAfterUpload() bool {
	return c.VerifyUploads == nil || *c.VerifyUploads
}

// GetHost resolves a host by alias, falling back to the default host, or to
// the single configured host when only one exists
func (c *Config) GetHost(alias string) (*Host, error) {
	if alias == "" {
		alias = c.DefaultHost
	}
	if alias == "" {
		switch len(c.Hosts) {
		case 0:
			return nil, fmt.Errorf("no hosts configured, define some")
		case 1:
			for _, h := range c.Hosts {
				return h, nil
			}
		default:
			return nil, fmt.Errorf("multiple hosts defined but no default_host set and no --host given")
		}
	}
	h, ok := c.Hosts[alias]
	if !ok {
		return nil, fmt.Errorf("did not find host alias: %s", alias)
	}
	return h, nil
}

// GetHostname returns the configured hostname or the alias when unset
func (h *Host) GetHostname() string {
	if h.Hostname != "" {
		return h.Hostname
	}
	return h.Alias
}

// GetUsername returns the configured user or the local account name
func (h *Host) GetUsername() string {
	if h.User != "" {
		return h.User
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

// GetURL composes the public link for a stored relative path, percent
// encoding each segment
func (h *Host) GetURL(relativePath string) string {
	segments := strings.Split(relativePath, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(h.URL, "/") + "/" + strings.Join(segments, "/")
}

func checkPrefixLength(key string, length int) error {
	if length < MinPrefixLength || length > MaxPrefixLength {
		return fmt.Errorf("%s: prefix length needs to be between %d and %d characters, got %d",
			key, MinPrefixLength, MaxPrefixLength, length)
	}
	return nil
}
