package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// DefaultConfigFile is read when no config file is given
	DefaultConfigFile = "/etc/clumond/clumond.toml"
	envPrefix         = "CLUMON"
)

// order of priority:
// parameter
// environment variable (CLUMON_CONFIG_FILE, CLUMON_LOG_LEVEL, ...)
// default

// Execute parses the command parameters and starts the requested process
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd returns the clumond command with all subcommands
func NewRootCmd() *cobra.Command {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Root
	rootCmd := &cobra.Command{
		Use:           filepath.Base(os.Args[0]),
		Short:         "Cluster state monitor",
		Long:          `clumond gossips the state of a cluster between its nodes and answers local queries about the merged view`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	// Root Flags
	rootCmd.PersistentFlags().String("config-file", DefaultConfigFile, "location of the config file (.toml or .yaml)")
	viper.BindPFlag("config_file", rootCmd.PersistentFlags().Lookup("config-file"))

	rootCmd.PersistentFlags().String("log-level", "", "level of logging (debug, info, warn, error), overrides the config file")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(
		serveCmd(),
		statusCmd(),
		versionCmd(),
	)
	return rootCmd
}

// configFile returns the config file to use, ~ is expanded
func configFile() (string, error) {
	file := viper.GetString("config_file")
	if file == "" {
		file = DefaultConfigFile
	}
	return homedir.Expand(file)
}
