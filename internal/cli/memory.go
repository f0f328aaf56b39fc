package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/mission-control/internal/model"
	"github.com/rcliao/mission-control/internal/search"
	"github.com/rcliao/mission-control/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Store and browse memories",
	}

	add := &cobra.Command{
		Use:   "add [content]",
		Short: "Store a memory",
		Long:  "Store a memory. Content can be a positional arg or piped via stdin.",
		Run:   runMemoryAdd,
	}
	add.Flags().StringP("type", "t", "note", "Type: note, decision, fact, preference")
	add.Flags().String("category", "", "Category")
	add.Flags().String("source", "", "Source")
	add.Flags().IntP("importance", "i", 0, "Importance 1-10")
	add.Flags().String("tags", "", "Comma-separated tags")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a memory",
		Args:  cobra.ExactArgs(1),
		Run:   runMemoryGet,
	}

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a memory's content, category, importance or tags",
		Args:  cobra.ExactArgs(1),
		Run:   runMemoryUpdate,
	}
	update.Flags().String("content", "", "Content")
	update.Flags().String("category", "", "Category")
	update.Flags().IntP("importance", "i", 0, "Importance 1-10")
	update.Flags().String("tags", "", "Comma-separated tags (empty clears)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List memories, most recently updated first",
		Run:   runMemoryList,
	}
	list.Flags().StringP("type", "t", "", "Filter by type")
	list.Flags().String("category", "", "Filter by category (ignored when --type is set)")
	list.Flags().IntP("limit", "l", 50, "Max results")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a memory",
		Args:  cobra.ExactArgs(1),
		Run:   runMemoryRm,
	}

	cmd.AddCommand(add, get, update, list, rm)
	RootCmd.AddCommand(cmd)
}

func runMemoryAdd(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("type")
	category, _ := cmd.Flags().GetString("category")
	source, _ := cmd.Flags().GetString("source")
	tags, _ := cmd.Flags().GetString("tags")

	content := strings.TrimSpace(readContent(args))
	if content == "" {
		exitErr("memory add", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	e := openEnv()
	defer e.Close()

	m, err := e.svc.CreateMemory(ctxOf(cmd), model.MemoryInput{
		Content:    content,
		Type:       model.MemoryType(typ),
		Category:   category,
		Source:     source,
		Importance: optInt(cmd, "importance"),
		Tags:       splitList(tags),
	})
	if err != nil {
		exitErr("memory add", err)
	}
	printJSON(m)
}

func runMemoryGet(cmd *cobra.Command, args []string) {
	e := openEnv()
	defer e.Close()

	m, err := e.svc.GetMemory(ctxOf(cmd), args[0])
	if err != nil {
		exitErr("memory get", err)
	}
	printJSON(m)
}

func runMemoryUpdate(cmd *cobra.Command, args []string) {
	p := model.MemoryPatch{
		Content:    optString(cmd, "content"),
		Category:   optString(cmd, "category"),
		Importance: optInt(cmd, "importance"),
	}
	if v := optString(cmd, "tags"); v != nil {
		tags := orEmpty(splitList(*v))
		p.Tags = &tags
	}

	e := openEnv()
	defer e.Close()

	m, err := e.svc.UpdateMemory(ctxOf(cmd), args[0], p)
	if err != nil {
		exitErr("memory update", err)
	}
	printJSON(m)
}

func runMemoryList(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("type")
	category, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")

	q := store.MemoryQuery{Category: category, Limit: limit}
	if typ != "" {
		t, err := model.ParseMemoryType(typ)
		if err != nil {
			exitErr("memory list", err)
		}
		q.Type = t
	}

	e := openEnv()
	defer e.Close()

	mems, err := e.svc.ListMemories(ctxOf(cmd), q)
	if err != nil {
		exitErr("memory list", err)
	}
	if textOutput() {
		printItems(search.Wrap(mems, search.MemoryItem))
		return
	}
	printJSON(orEmpty(mems))
}

func runMemoryRm(cmd *cobra.Command, args []string) {
	e := openEnv()
	defer e.Close()

	if err := e.svc.DeleteMemory(ctxOf(cmd), args[0]); err != nil {
		exitErr("memory rm", err)
	}
	printJSON(map[string]string{"deleted": args[0]})
}
