package cmd

import (
	"bufio"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/emmt/xen/pkg/channel"
	"github.com/emmt/xen/pkg/endpoint"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to a peer and send commands read from stdin",
	Long: `connect dials --address:--port and opens an interactive session:
each line read from stdin is sent as a CMD, and OK/ERR/EVT messages from
the peer are logged as they arrive.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort)
		ch, err := endpoint.Dial(addr, channel.WithEncoding(cfg.Encoding))
		if err != nil {
			return err
		}
		defer ch.Close()

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			serial, err := ch.SendCommand(line)
			if err != nil {
				return fmt.Errorf("send command: %w", err)
			}
			log.Printf("xenctl: sent CMD:%d:%s", serial, line)
		}
		return scanner.Err()
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
}
