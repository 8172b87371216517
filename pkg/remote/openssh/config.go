package openssh

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
)

// ClientConfig holds the effective OpenSSH client settings for one host, as
// resolved by `ssh -G`. It fills in hostname, user and port when the shelf
// configuration leaves them unset, so that ~/.ssh/config keeps working.
type ClientConfig struct {
	values map[string][]string
}

// ResolveClientConfig asks the ssh binary for its resolved configuration
func ResolveClientConfig(ctx context.Context, host string) (*ClientConfig, error) {
	out, err := exec.CommandContext(ctx, "ssh", "-G", host).Output()
	if err != nil {
		return nil, err
	}
	return parseClientConfig(string(out)), nil
}

func parseClientConfig(out string) *ClientConfig {
	values := map[string][]string{}
	for _, line := range strings.Split(out, "\n") {
		key, value, found := strings.Cut(line, " ")
		if !found || key == "" {
			continue
		}
		values[key] = append(values[key], value)
	}
	return &ClientConfig{values: values}
}

func (c *ClientConfig) single(key string) string {
	if v, ok := c.values[key]; ok && len(v) > 0 {
		return v[0]
	}
	return ""
}

// Hostname as resolved by the client configuration
func (c *ClientConfig) Hostname() string {
	return c.single("hostname")
}

// User as resolved by the client configuration
func (c *ClientConfig) User() string {
	return c.single("user")
}

// Port as resolved by the client configuration, 0 when absent
func (c *ClientConfig) Port() int {
	p, err := strconv.Atoi(c.single("port"))
	if err != nil {
		return 0
	}
	return p
}

// IdentityFiles lists the configured private key files
func (c *ClientConfig) IdentityFiles() []string {
	return c.values["identityfile"]
}
