package cli

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/globalplanner/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

type flags struct {
	config         string
	healthPort     int
	logFormat      string
	logLevel       string
	bridgeURL      string
	namespace      string
	insecure       bool
	connectTimeout time.Duration
	genLogPath     string
	eventBuffer    int
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var (
		f   flags
		ran bool
	)
	cmd := &cobra.Command{
		Use:   "globalplanner [CONFIG_PATH]",
		Short: "Global mission and route planner for an autonomous vehicle.",
		Long: `globalplanner plans lane-level routes over a road network towards an
ordered list of destinations and replans as the vehicle moves.

CONFIG_PATH is the planner configuration file (planner.hcl).`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, positional []string) error {
			ran = true
			if f.config == "" && len(positional) > 0 {
				f.config = positional[0]
			}
			return nil
		},
	}
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(output)
	cmd.SetErr(output)

	fs := cmd.Flags()
	fs.StringVarP(&f.config, "config", "c", "", "Path to the planner configuration file.")
	fs.IntVar(&f.healthPort, "healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	fs.StringVar(&f.logFormat, "log-format", "json", "Log output format. Options: 'text' or 'json'.")
	fs.StringVar(&f.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	fs.StringVar(&f.bridgeURL, "bridge-url", "", "socket.io server the vehicle feeds come from. Empty disables the bridge.")
	fs.StringVar(&f.namespace, "namespace", app.DefaultNamespace, "socket.io namespace.")
	fs.BoolVar(&f.insecure, "insecure", false, "Skip TLS verification for the bridge.")
	fs.DurationVar(&f.connectTimeout, "connect-timeout", 15*time.Second, "Bridge connection timeout.")
	fs.StringVar(&f.genLogPath, "genlog-path", "", "Directory for the persistent generation log. Empty keeps it in memory.")
	fs.IntVar(&f.eventBuffer, "event-buffer", app.DefaultEventBuffer, "Capacity of each inbound event queue.")

	if err := cmd.Execute(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if !ran {
		// --help was printed.
		return nil, true, nil
	}
	slog.Debug("Arguments parsed successfully.")

	if f.config == "" {
		slog.Debug("No config path provided, printing usage and exiting.")
		_ = cmd.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(f.logFormat)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(f.logLevel)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		ConfigPath:         f.config,
		LogFormat:          logFormat,
		LogLevel:           logLevel,
		HealthcheckPort:    f.healthPort,
		BridgeURL:          f.bridgeURL,
		Namespace:          f.namespace,
		InsecureSkipVerify: f.insecure,
		ConnectTimeout:     f.connectTimeout,
		GenLogPath:         f.genLogPath,
		EventBuffer:        f.eventBuffer,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
