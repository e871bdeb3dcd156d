package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nightlyone/lockfile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/schubergphilis/clumon/internal/config"
	"github.com/schubergphilis/clumon/internal/core"
	"github.com/schubergphilis/clumon/pkg/logging"
)

func serveCmd() *cobra.Command {
	// Serve
	command := &cobra.Command{
		Use:   "serve",
		Short: "start the cluster monitor",
		RunE:  serve,
	}
	// Serve Flags
	command.Flags().String("pid-file", "/var/run/clumond.pid", "location of the pid file")
	viper.BindPFlag("pid_file", command.Flags().Lookup("pid-file"))
	return command
}

func serve(command *cobra.Command, args []string) error {
	file, err := configFile()
	if err != nil {
		return err
	}
	c, err := config.Load(file)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if level := viper.GetString("log_level"); level != "" {
		c.Logging.Level = level
	}

	lock, err := getLock(viper.GetString("pid_file"))
	if err != nil {
		return err
	}
	defer lock.Unlock()

	// Start the application
	manager := core.NewManager(c)
	if err := manager.Start(context.Background()); err != nil {
		return err
	}
	log := logging.For("cmd/serve")

	// wait for sigint or sigterm for cleanup
	sigterm := make(chan os.Signal, 10)
	signal.Notify(sigterm, os.Interrupt, syscall.SIGTERM)

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)

	for {
		select {
		case <-sigterm:
			log.Warn("Program killed by signal!")
			manager.Stop()
			return nil

		case <-sighup:
			log.Warn("Program received HUP signal!")
			manager.Reload()

		case <-manager.Changed():
			log.Info("Config file changed")
			manager.Reload()
		}
	}
}

// getLock takes the pid file, or reports the process holding it
func getLock(file string) (lockfile.Lockfile, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", err
	}
	lock, err := lockfile.New(abs)
	if err != nil {
		return "", fmt.Errorf("pid file %s: %w", abs, err)
	}
	if err := lock.TryLock(); err != nil {
		if proc, perr := lock.GetOwner(); perr == nil {
			return "", fmt.Errorf("pid file %s is held by pid %d: %w", abs, proc.Pid, err)
		}
		return "", fmt.Errorf("pid file %s: %w", abs, err)
	}
	return lock, nil
}
