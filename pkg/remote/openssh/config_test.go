package openssh

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseClientConfig(t *testing.T) {
	// shape of `ssh -G <host>` output
	c := parseClientConfig(`user share
hostname files.example.com
port 2222
identityfile ~/.ssh/id_ed25519
identityfile ~/.ssh/id_rsa
addkeystoagent false
`)
	assert.Equal(t, "files.example.com", c.Hostname())
	assert.Equal(t, "share", c.User())
	assert.Equal(t, 2222, c.Port())
	assert.Equal(t, []string{"~/.ssh/id_ed25519", "~/.ssh/id_rsa"}, c.IdentityFiles())
}

func TestParseClientConfigMissingKeys(t *testing.T) {
	c := parseClientConfig("")
	assert.Equal(t, "", c.Hostname())
	assert.Equal(t, "", c.User())
	assert.Equal(t, 0, c.Port())
	assert.Empty(t, c.IdentityFiles())
}
