// Command etm_err lists the decoder error codes and their descriptions.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"etmdecode/common"
)

func printCode(w io.Writer, c common.ErrCode) {
	fmt.Fprintf(w, "0x%04x %-24s %s\n", uint32(c), c.Name(), c.Description())
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "etm_err [code...]",
		Short:        "List decoder error codes",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprintln(w, "ETM decoder error code list")
				fmt.Fprintln(w)
				for _, c := range common.ErrCodes() {
					printCode(w, c)
				}
				return nil
			}
			for _, arg := range args {
				v, err := strconv.ParseUint(arg, 0, 32)
				if err != nil {
					return fmt.Errorf("invalid error code %q: %w", arg, err)
				}
				printCode(w, common.ErrCode(v))
			}
			return nil
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
