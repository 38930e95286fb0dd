package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"etmdecode/common"
	"etmdecode/internal/config"
	"etmdecode/internal/lister"
)

var errStreamsFailed = errors.New("one or more trace streams failed to decode")

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trc_pkt_lister [capture]",
		Short: "Decode the ETMv4 trace held in an ETB capture",
		Long: `trc_pkt_lister splits an ETB capture into one byte stream per trace
source ID and decodes each stream as ETMv4 instruction trace.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	cmd.Flags().String("config", "", "YAML run configuration file")
	cmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().String("format", config.FormatText, "Report format: text or json")
	cmd.Flags().Int("workers", 0, "Number of streams decoded in parallel (default: number of CPUs)")
	cmd.Flags().StringArray("device", nil, "ETMv4 register ini file, may be repeated")
	cmd.Flags().String("log-level", "info", "Log level: debug, info, warn or error")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this textfile")
	cmd.Flags().Bool("raw", false, "Dump the demultiplexed bytes of every source")
	cmd.Flags().Bool("stats", false, "Print per-stream trace element counts")
	cmd.Flags().Bool("no-id", false, "Omit the index and trace ID from event lines")
	cmd.Flags().Bool("quiet", false, "Only write statistics and the run summary")

	return cmd
}

// loadConfig builds the run configuration from the config file and the flags set on the command line.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if len(args) == 1 {
		cfg.Input = args[0]
	}
	if flags.Changed("output") {
		cfg.Output.Path, _ = flags.GetString("output")
	}
	if flags.Changed("format") {
		cfg.Output.Format, _ = flags.GetString("format")
	}
	if flags.Changed("workers") {
		cfg.Decode.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("device") {
		cfg.Decode.Devices, _ = flags.GetStringArray("device")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.File, _ = flags.GetString("metrics-file")
	}
	if flags.Changed("raw") {
		cfg.Output.RawSources, _ = flags.GetBool("raw")
	}
	if flags.Changed("stats") {
		cfg.Output.Stats, _ = flags.GetBool("stats")
	}
	if flags.Changed("no-id") {
		cfg.Output.HideIDs, _ = flags.GetBool("no-id")
	}
	if flags.Changed("quiet") {
		cfg.Output.Quiet, _ = flags.GetBool("quiet")
	}

	if cfg.Input == "" {
		return nil, fmt.Errorf("missing capture file: pass it as an argument or set input in the config file")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	logger := common.NewStdLoggerWithWriter(cmd.ErrOrStderr(), cfg.Logging.Severity())

	if cfg.Output.Path == "" {
		return runLister(lister.New(cfg, cmd.OutOrStdout(), logger))
	}

	f, err := os.Create(cfg.Output.Path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	return runListerTo(f, cfg, logger)
}

// runListerTo writes the report to w and closes it. A close error is
// returned unless the run already failed.
func runListerTo(w io.WriteCloser, cfg *config.Config, logger common.Logger) error {
	err := runLister(lister.New(cfg, w, logger))
	if cerr := w.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close report file: %w", cerr)
	}
	return err
}

// runLister runs the lister and turns failed streams into an error.
func runLister(l *lister.Lister) error {
	report, err := l.Run()
	if err != nil {
		return err
	}
	if report.Failed() {
		return errStreamsFailed
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Trace Packet Lister : Error: %v\n", err)
		os.Exit(1)
	}
}
