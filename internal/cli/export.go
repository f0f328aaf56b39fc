package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every record as JSON",
		Long:  "Export activities, tasks, memories, documents and search history as one JSON document on stdout.",
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	e := openEnv()
	defer e.Close()

	snap, err := e.svc.Export(ctxOf(cmd))
	if err != nil {
		exitErr("export", err)
	}
	printJSON(snap)
}
