package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/remoteshelf/shelf/pkg/config"
	"github.com/remoteshelf/shelf/pkg/remote/openssh"
	"github.com/remoteshelf/shelf/pkg/zlog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shelf",
	Short: "shelf shares files through a remote content-addressed store",
	Long: `shelf uploads files to a folder on a remote machine reachable over ssh and
serves stable, hash-addressed links to them.

Every file is stored under a folder named by a truncated hash of its content,
which deduplicates uploads and lets the store verify its own integrity
without any local copy.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		logger, err = zlog.New(logLevel)
		if err != nil {
			wrapFatalln("set up logger", err)
		}
	},
}

var (
	cfg      *config.Config
	logger   = zap.NewNop()
	cfgFile  string
	hostName string
	logLevel string
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		osExit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: shelf.yaml in ., $HOME/.shelf, /etc/shelf)")
	rootCmd.PersistentFlags().StringVarP(&hostName, "host", "H", "", "remote host alias to operate on")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", zlog.LogLevelInfo, "log level (none, info, debug)")
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if env := os.Getenv("SHELF_CONFIG"); env != "" {
		viper.SetConfigFile(env)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.shelf")
		viper.AddConfigPath("/etc/shelf")
		viper.SetConfigName("shelf")
	}
	viper.SetEnvPrefix("shelf")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	if err := viper.ReadInConfig(); err != nil {
		wrapFatalln("did not find a valid configuration", err)
	}

	var err error
	cfg, err = config.FromViper(viper.GetViper())
	if err != nil {
		wrapFatalln(fmt.Sprintf("invalid configuration %s", viper.ConfigFileUsed()), err)
	}
}

// currentHost resolves the host targeted by this invocation
func currentHost() *config.Host {
	h, err := cfg.GetHost(hostName)
	if err != nil {
		wrapFatalln("resolve host", err)
	}
	return h
}

// newSession builds an openssh session for a host, filling in connection
// settings from the ssh client configuration when the shelf config leaves
// them unset
func newSession(ctx context.Context, h *config.Host) *openssh.Session {
	hostname := h.GetHostname()
	username := h.User
	port := h.Port

	if clientCfg, err := openssh.ResolveClientConfig(ctx, hostname); err == nil {
		logger.Debug("resolved ssh client config",
			zap.String("hostname", clientCfg.Hostname()),
			zap.Strings("identity_files", clientCfg.IdentityFiles()))
		if h.Hostname == "" && clientCfg.Hostname() != "" {
			hostname = clientCfg.Hostname()
		}
		if username == "" {
			username = clientCfg.User()
		}
		if port == 0 {
			port = clientCfg.Port()
		}
	} else {
		logger.Debug("could not resolve ssh client config", zap.Error(err))
	}

	return openssh.New(hostname, h.Folder,
		openssh.User(username),
		openssh.Port(port),
		openssh.Logger(logger),
	)
}
