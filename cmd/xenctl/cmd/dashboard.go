package cmd

import (
	"fmt"
	"io"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/emmt/xen/cmd/xenctl/tui"
	"github.com/emmt/xen/pkg/channel"
	"github.com/emmt/xen/pkg/endpoint"
	"github.com/emmt/xen/pkg/evaluator"
	"github.com/emmt/xen/pkg/monitor"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Launch an interactive TUI showing live peers and traffic",
	Long: `dashboard starts a Server bound to --address:--port, same as
serve, but instead of logging to stdout it renders connected peers and
recent message traffic in a terminal dashboard.

Key bindings:
  Tab / Shift+Tab  Switch between the Peers and Activity tabs
  q / Ctrl+C       Quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// The default dispatcher's diagnostic logging would tear up the
		// alt-screen TUI; the dashboard renders that information itself.
		log.SetOutput(io.Discard)
		rec := monitor.New()
		addr := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort)

		opts := append(rec.ServerOptions(),
			endpoint.WithChannelOptions(
				channel.WithEncoding(cfg.Encoding),
				channel.WithEvaluator(evaluator.Arith{}),
				channel.WithDispatcher(rec.RecordDispatch(channel.DefaultDispatcher)),
			),
		)
		srv, err := endpoint.Listen(addr, opts...)
		if err != nil {
			return err
		}
		defer srv.Close()

		go func() {
			_ = srv.Serve()
		}()

		p := tea.NewProgram(tui.New(srv.Addr().String(), rec), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
