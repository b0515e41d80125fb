package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/emmt/xen/pkg/channel"
	"github.com/emmt/xen/pkg/endpoint"
	"github.com/emmt/xen/pkg/evaluator"
)

var maxClientsFlag int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Listen for peers and evaluate their commands",
	Long: `serve starts a Server bound to --address:--port, accepts peer
connections up to --max-clients, and answers every received CMD with the
built-in arithmetic evaluator.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort)
		maxClients := cfg.MaxClients
		if cmd.Flags().Changed("max-clients") {
			maxClients = maxClientsFlag
		}
		srv, err := endpoint.Listen(addr,
			endpoint.WithMaxClients(maxClients),
			endpoint.WithChannelOptions(
				channel.WithEncoding(cfg.Encoding),
				channel.WithEvaluator(evaluator.Arith{}),
			),
			endpoint.WithPeerAdded(func(ch *channel.Channel) {
				log.Printf("xenctl: peer connected")
			}),
			endpoint.WithPeerRemoved(func(ch *channel.Channel) {
				log.Printf("xenctl: peer disconnected: %v", ch.Err())
			}),
		)
		if err != nil {
			return err
		}
		defer srv.Close()
		log.Printf("xenctl: listening on %s", srv.Addr())
		return srv.Serve()
	},
}

func init() {
	serveCmd.Flags().IntVar(&maxClientsFlag, "max-clients", -1, "maximum simultaneous peers, -1 for unlimited")
	rootCmd.AddCommand(serveCmd)
}
