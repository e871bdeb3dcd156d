package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schubergphilis/clumon/internal/config"
	"github.com/schubergphilis/clumon/internal/core"
)

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "shows the version of clumond",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s (build: %s)\nSha: %s\n", core.Name, config.Version, config.VersionBuild, config.VersionSha)
		},
	}
	return cmd
}
