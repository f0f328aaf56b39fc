package cli

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/mission-control/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import records from JSON",
		Long:  "Import records from JSON (stdin or file). Expects the format produced by export. Records whose id already exists are skipped.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var r io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open file", err)
		}
		defer f.Close()
		r = f
	}

	var snap store.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		exitErr("parse json", err)
	}

	e := openEnv()
	defer e.Close()

	counts, err := e.svc.Import(ctxOf(cmd), &snap)
	if err != nil {
		exitErr("import", err)
	}
	printJSON(map[string]any{"ok": true, "imported": counts})
}
