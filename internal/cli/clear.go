package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/mission-control/internal/app"
)

func init() {
	cmd := &cobra.Command{
		Use:   "clear <collection>",
		Short: "Delete every record in a collection",
		Long: "Irreversibly delete every record in a collection: " + strings.Join(app.ClearCollections, ", ") + `.
"all" empties tasks, activities and memories. Requires --yes.`,
		Args: cobra.ExactArgs(1),
		Run:  runClear,
	}
	cmd.Flags().Bool("yes", false, "Confirm the deletion")

	RootCmd.AddCommand(cmd)
}

func runClear(cmd *cobra.Command, args []string) {
	collection := args[0]
	if !slices.Contains(app.ClearCollections, collection) {
		exitErr("clear", fmt.Errorf("unknown collection %q (want one of %s)", collection, strings.Join(app.ClearCollections, ", ")))
	}
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		exitErr("clear", fmt.Errorf("refusing to delete %s without --yes", collection))
	}

	e := openEnv()
	defer e.Close()

	n, err := e.svc.Clear(ctxOf(cmd), collection)
	if err != nil {
		exitErr("clear", err)
	}
	printJSON(map[string]any{"collection": collection, "deleted": n})
}
