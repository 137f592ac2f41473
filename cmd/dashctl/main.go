package main

import (
	"fmt"
	"io"
	"os"

	"github.com/danmuck/ctrldash/internal/logging"
	"github.com/danmuck/ctrldash/internal/service"
	"github.com/danmuck/ctrldash/internal/telemetry"
	"github.com/spf13/cobra"
)

type flags struct {
	config     string
	host       string
	port       int
	schema     string
	statusAddr string
	headless   bool
	logFile    string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "dashctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "dashctl",
		Short: "Live vehicle-control telemetry dashboard",
		Long: `Listen for newline-delimited JSON controller telemetry on a TCP port and
render the latest controls in the terminal.

One client is served at a time. Press q or Ctrl+C to exit.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f)
		},
	}
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "path to a dashctl TOML config")
	cmd.Flags().StringVar(&f.host, "host", "", "listen host (default 0.0.0.0)")
	cmd.Flags().IntVarP(&f.port, "port", "p", 0, "listen port (default 5000)")
	cmd.Flags().StringVar(&f.schema, "schema", "", "wire schema: auto|generic|fixed")
	cmd.Flags().StringVar(&f.statusAddr, "status-addr", "", "serve /health, /status and /metrics on this address")
	cmd.Flags().BoolVar(&f.headless, "headless", false, "log a heartbeat instead of drawing the dashboard")
	cmd.Flags().StringVar(&f.logFile, "log-file", "", "log destination while the dashboard owns the terminal")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "log level: debug|info|warn|error")
	return cmd
}

func resolveSettings(cmd *cobra.Command, f *flags) (settings, error) {
	s, err := loadSettings(f.config)
	if err != nil {
		return settings{}, err
	}
	changed := cmd.Flags().Changed
	if changed("host") {
		s.Service.Listener.Host = f.host
	}
	if changed("port") {
		s.Service.Listener.Port = f.port
	}
	if changed("schema") {
		mode, err := telemetry.ParseSchemaMode(f.schema)
		if err != nil {
			return settings{}, err
		}
		s.Service.Listener.Schema = mode
	}
	if changed("status-addr") {
		s.Service.StatusAddr = f.statusAddr
	}
	if changed("headless") {
		s.Service.Headless = f.headless
	}
	if changed("log-file") {
		s.LogFile = f.logFile
	}
	if changed("log-level") {
		s.LogLevel = f.logLevel
	}
	return s, nil
}

func run(cmd *cobra.Command, f *flags) error {
	s, err := resolveSettings(cmd, f)
	if err != nil {
		return err
	}

	out, closeLog, err := logWriter(s)
	if err != nil {
		return err
	}
	defer closeLog()
	logging.ConfigureRuntime(out, s.LogLevel)

	svc, err := service.New(s.Service)
	if err != nil {
		return err
	}
	return svc.Run()
}

// logWriter keeps log lines off the terminal while the dashboard draws.
func logWriter(s settings) (io.Writer, func(), error) {
	if s.Service.Headless {
		return os.Stderr, func() {}, nil
	}
	if s.LogFile == "" {
		return io.Discard, func() {}, nil
	}
	file, err := os.OpenFile(s.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return file, func() { _ = file.Close() }, nil
}
