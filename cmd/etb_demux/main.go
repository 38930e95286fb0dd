// Command etb_demux splits an ETB capture into one file per trace source ID.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"etmdecode/common"
	"etmdecode/frame"
	"etmdecode/internal/printers"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "etb_demux <capture>",
		Short:        "Demultiplex an ETB capture into per-source trace files",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         run,
	}
	cmd.Flags().StringP("out-dir", "d", "", "Directory for the source_0xNN.bin files (no files written when empty)")
	cmd.Flags().Bool("dump", false, "Print the bytes of every source")
	cmd.Flags().String("log-level", "warn", "Log level: debug, info, warn or error")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	level, _ := cmd.Flags().GetString("log-level")
	sev, err := common.ParseSeverity(level)
	if err != nil {
		return err
	}
	logger := common.NewStdLoggerWithWriter(cmd.ErrOrStderr(), sev)

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read capture: %w", err)
	}

	demux := frame.NewDemuxer()
	demux.SetLogger(logger)
	res := demux.Process(data)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%d frames, %d frame syncs, %d trace sources", res.Frames, res.FSyncs, len(res.Sources))
	if res.Stopped {
		fmt.Fprint(w, ", stopped on a null ID")
	}
	fmt.Fprintln(w)

	if dump, _ := cmd.Flags().GetBool("dump"); dump {
		printers.NewSourcePrinter(w).PrintResult(&res)
	}

	outDir, _ := cmd.Flags().GetString("out-dir")
	if outDir == "" {
		return nil
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for _, src := range res.Sources {
		if len(src.Data) == 0 {
			logger.Info(fmt.Sprintf("no data for ID 0x%02X", src.ID))
			continue
		}
		path := filepath.Join(outDir, fmt.Sprintf("source_0x%02X.bin", src.ID))
		if err := os.WriteFile(path, src.Data, 0o644); err != nil {
			return fmt.Errorf("write source 0x%02X: %w", src.ID, err)
		}
		fmt.Fprintf(w, "ID 0x%02X: %d bytes -> %s\n", src.ID, len(src.Data), path)
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
