// Command filemon watches a single named file for lifecycle and content
// events, surviving the file being deleted and recreated.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "filemon",
	Short: "Watch a single file for lifecycle and content events",
	Long: `filemon watches one named file for creation, deletion, rename,
modification, and metadata changes, even across the file being deleted and
recreated.

It keeps a permanent watch on the file's parent directory to catch
create/delete cycles, and an on-demand watch on the file itself for content
and metadata activity while it exists.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
