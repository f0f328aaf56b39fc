package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert sample activities, tasks and memories",
		Run:   runSeed,
	}

	RootCmd.AddCommand(cmd)
}

func runSeed(cmd *cobra.Command, args []string) {
	e := openEnv()
	defer e.Close()

	counts, err := e.svc.Seed(ctxOf(cmd))
	if err != nil {
		exitErr("seed", err)
	}
	printJSON(counts)
}
