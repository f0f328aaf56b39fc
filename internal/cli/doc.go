package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcliao/mission-control/internal/indexer"
	"github.com/rcliao/mission-control/internal/model"
	"github.com/rcliao/mission-control/internal/search"
	"github.com/rcliao/mission-control/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Manage indexed documents",
	}

	put := &cobra.Command{
		Use:   "put <path>",
		Short: "Store a document",
		Long:  "Store a document at path. Content is read from stdin when piped, otherwise from the file at path.",
		Args:  cobra.ExactArgs(1),
		Run:   runDocPut,
	}
	put.Flags().String("name", "", "Display name (default: base of path)")
	put.Flags().StringP("type", "t", "", "Type: markdown, code, config, other (default: from extension)")

	get := &cobra.Command{
		Use:   "get <path>",
		Short: "Show a document",
		Args:  cobra.ExactArgs(1),
		Run:   runDocGet,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List documents, most recently modified first",
		Run:   runDocList,
	}
	list.Flags().StringP("type", "t", "", "Filter by type")
	list.Flags().IntP("limit", "l", 50, "Max results")

	rm := &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		Run:   runDocRm,
	}

	index := &cobra.Command{
		Use:   "index [root...]",
		Short: "Index files under roots (default: indexer.roots from config)",
		Run:   runDocIndex,
	}
	index.Flags().BoolP("watch", "w", false, "Keep watching the roots after the first pass")

	cmd.AddCommand(put, get, list, rm, index)
	RootCmd.AddCommand(cmd)
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		exitErr("resolve path", err)
	}
	return abs
}

func runDocPut(cmd *cobra.Command, args []string) {
	path := absPath(args[0])
	name, _ := cmd.Flags().GetString("name")
	typ, _ := cmd.Flags().GetString("type")

	content := readContent(nil)
	if content == "" {
		b, err := os.ReadFile(path)
		if err != nil {
			exitErr("doc put", err)
		}
		content = string(b)
	}
	if strings.TrimSpace(content) == "" {
		exitErr("doc put", fmt.Errorf("content is empty"))
	}

	e := openEnv()
	defer e.Close()

	d, err := e.svc.UpsertDocument(ctxOf(cmd), model.DocumentInput{
		Path:    path,
		Name:    name,
		Content: content,
		Type:    model.DocumentType(typ),
	})
	if err != nil {
		exitErr("doc put", err)
	}
	printJSON(d)
}

func runDocGet(cmd *cobra.Command, args []string) {
	e := openEnv()
	defer e.Close()

	d, err := e.svc.GetDocument(ctxOf(cmd), absPath(args[0]))
	if err != nil {
		exitErr("doc get", err)
	}
	printJSON(d)
}

func runDocList(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("type")
	limit, _ := cmd.Flags().GetInt("limit")

	q := store.DocumentQuery{Limit: limit}
	if typ != "" {
		t, err := model.ParseDocumentType(typ)
		if err != nil {
			exitErr("doc list", err)
		}
		q.Type = t
	}

	e := openEnv()
	defer e.Close()

	docs, err := e.svc.ListDocuments(ctxOf(cmd), q)
	if err != nil {
		exitErr("doc list", err)
	}
	if textOutput() {
		printItems(search.Wrap(docs, search.DocumentItem))
		return
	}
	printJSON(orEmpty(docs))
}

func runDocRm(cmd *cobra.Command, args []string) {
	path := absPath(args[0])

	e := openEnv()
	defer e.Close()

	if err := e.svc.DeleteDocument(ctxOf(cmd), path); err != nil {
		exitErr("doc rm", err)
	}
	printJSON(map[string]string{"deleted": path})
}

func newIndexer(e *env) *indexer.Indexer {
	return indexer.New(e.store, indexer.Options{
		Include:      e.cfg.Indexer.Include,
		Ignore:       e.cfg.Indexer.Ignore,
		MaxFileBytes: e.cfg.Indexer.MaxFileBytes,
		Debounce:     e.cfg.Indexer.Debounce.Std(),
	}, e.logger.WithPrefix("indexer"))
}

func runDocIndex(cmd *cobra.Command, args []string) {
	watch, _ := cmd.Flags().GetBool("watch")

	e := openEnv()
	defer e.Close()

	roots := args
	if len(roots) == 0 {
		roots = e.cfg.Indexer.Roots
	}
	if len(roots) == 0 {
		exitErr("doc index", fmt.Errorf("no roots given and indexer.roots is empty"))
	}

	ctx, stop := signal.NotifyContext(ctxOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ix := newIndexer(e)
	var results []*indexer.Result
	for _, root := range roots {
		res, err := ix.IndexRoot(ctx, root)
		if err != nil {
			exitErr("doc index", err)
		}
		results = append(results, res)
	}
	printJSON(results)

	if !watch {
		return
	}
	if err := ix.Watch(ctx, roots...); err != nil {
		exitErr("doc watch", err)
	}
}
