package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/wardrive-cli/internal/blocklist"
)

const defaultFilterPath = "filter.json"

var initFilterForce bool

var initFilterCmd = &cobra.Command{
	Use:   "init-filter [path]",
	Short: "Write a sample blocklist file",
	Long:  "Writes an example blocklist (JSON, or YAML for .yaml/.yml paths) to edit before scrubbing.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := defaultFilterPath
		if len(args) == 1 {
			path = args[0]
		}

		if _, err := os.Stat(path); err == nil && !initFilterForce {
			return eris.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !os.IsNotExist(err) {
			return eris.Wrapf(err, "stat %s", path)
		}

		if err := blocklist.WriteSample(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample filter to %s\n", path)
		return nil
	},
}

func init() {
	initFilterCmd.Flags().BoolVar(&initFilterForce, "force", false, "overwrite an existing file")
	rootCmd.AddCommand(initFilterCmd)
}
