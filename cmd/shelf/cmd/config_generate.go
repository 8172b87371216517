package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/remoteshelf/shelf/pkg/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v2"
)

var configGenOptions struct {
	force  bool
	stdout bool
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Commands to manage the shelf configuration",
}

var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a sample configuration file",
	Long: `Generate a sample configuration file.

The sample is written to $HOME/.shelf/shelf.yaml unless --stdout is given.
Adjust the host entries before using it: folder and url are required for
every host.`,
	Run: func(cmd *cobra.Command, args []string) {
		sample := sampleConfig()
		raw, err := yaml.Marshal(sample)
		if err != nil {
			wrapFatalln("marshal sample configuration", err)
		}

		o := &configGenOptions
		if o.stdout {
			fmt.Print(string(raw))
			return
		}

		home, err := os.UserHomeDir()
		if err != nil {
			wrapFatalln("resolve home directory", err)
		}
		target := filepath.Join(home, ".shelf", "shelf.yaml")

		fs := afero.NewOsFs()
		if !o.force {
			if _, statErr := fs.Stat(target); statErr == nil {
				wrapFatalf("%s already exists, use --force to overwrite", target)
			}
		}
		if err := fs.MkdirAll(filepath.Dir(target), 0o700); err != nil {
			wrapFatalln("create configuration directory", err)
		}
		if err := afero.WriteFile(fs, target, raw, 0o600); err != nil {
			wrapFatalln("write configuration", err)
		}
		fmt.Printf("Wrote sample configuration to %s\n", target)
	},
}

func sampleConfig() *config.Config {
	verify := true
	return &config.Config{
		DefaultHost:   "example",
		PrefixLength:  config.DefaultPrefixLength,
		VerifyUploads: &verify,
		Hosts: map[string]*config.Host{
			"example": {
				Hostname: "files.example.com",
				User:     "share",
				Folder:   "/var/www/share",
				URL:      "https://files.example.com/share",
				Group:    "www-data",
			},
		},
	}
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGenerateCmd)
	configGenerateCmd.Flags().BoolVar(&configGenOptions.force, "force", false, "overwrite an existing configuration file")
	configGenerateCmd.Flags().BoolVar(&configGenOptions.stdout, "stdout", false, "print the sample configuration instead of writing it")
}
