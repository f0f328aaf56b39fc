package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show database statistics",
		Run:   runInfo,
	}

	RootCmd.AddCommand(cmd)
}

func runInfo(cmd *cobra.Command, args []string) {
	e := openEnv()
	defer e.Close()

	info, err := e.svc.Info(ctxOf(cmd))
	if err != nil {
		exitErr("info", err)
	}
	printJSON(info)
}
