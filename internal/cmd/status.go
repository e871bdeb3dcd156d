package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/schubergphilis/clumon/internal/models"
	"github.com/schubergphilis/clumon/pkg/query"
)

func statusCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "status",
		Short: "show the merged cluster view of the local monitor",
		RunE: func(command *cobra.Command, args []string) error {
			client := query.NewClient(viper.GetString("socket"))
			ctx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("timeout"))
			defer cancel()

			if viper.GetBool("raw") {
				out, err := client.Do(ctx, "GET")
				if err != nil {
					return err
				}
				fmt.Fprint(command.OutOrStdout(), out)
				return nil
			}

			c, err := client.Get(ctx)
			if err != nil {
				return err
			}
			return printStatus(command.OutOrStdout(), c)
		},
	}
	command.Flags().String("socket", query.DefaultSocket, "location of the query socket")
	viper.BindPFlag("socket", command.Flags().Lookup("socket"))
	command.Flags().Duration("timeout", 5*time.Second, "time to wait for an answer")
	viper.BindPFlag("timeout", command.Flags().Lookup("timeout"))
	command.Flags().Bool("raw", false, "print the answer as received")
	viper.BindPFlag("raw", command.Flags().Lookup("raw"))
	return command
}

func printStatus(out io.Writer, c *models.Cluster) error {
	if c == nil {
		fmt.Fprintln(out, "no cluster view available yet")
		return nil
	}
	quorum := "inquorate"
	if c.Quorate() {
		quorum = "quorate"
	}
	fmt.Fprintf(out, "Cluster %s (version %d, %s, %d/%d votes)\n\n", c.Name, c.Version, quorum, c.RunningVotes(), c.MinQuorum)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NODE\tVOTES\tRUNNING\tCLUSTERED")
	for _, n := range c.Nodes {
		fmt.Fprintf(w, "%s\t%d\t%t\t%t\n", n.Name, n.Votes, n.Running, n.InCluster)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "SERVICE\tNODE\tAUTOSTART\tRUNNING\tFAILED")
	for _, s := range c.Services {
		fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%t\n", s.Name, s.NodeName, s.Autostart, s.Running, s.Failed)
	}
	return w.Flush()
}
