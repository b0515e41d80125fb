package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/emmt/xen/pkg/config"
)

var (
	// Global flags
	cfgFile  string
	address  string
	port     int
	encoding string

	// Shared state set during PersistentPreRunE
	cfg *config.Config
)

// rootCmd is the base command for xenctl.
var rootCmd = &cobra.Command{
	Use:   "xenctl",
	Short: "Xen protocol CLI — serve, connect, and inspect message channels",
	Long: `xenctl is the operator-facing CLI for the Xen bidirectional
messaging protocol. It can listen for peers, connect to one, or watch
live traffic in a terminal dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if address != "" {
			cfg.ListenAddress = address
		}
		if port != 0 {
			cfg.ListenPort = port
		}
		if encoding != "" {
			cfg.Encoding = encoding
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.xen/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&address, "address", "", "listen/connect host (default 127.0.0.1)")
	rootCmd.PersistentFlags().IntVar(&port, "port", 0, "listen/connect port (default OS-assigned for serve)")
	rootCmd.PersistentFlags().StringVar(&encoding, "encoding", "", "text encoding label, or \"binary\" (default iso8859-1)")
}
