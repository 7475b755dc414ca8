package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ragindexer/features/knowledge"
	"ragindexer/features/tool"
	"ragindexer/internal/app"
	"ragindexer/internal/config"
)

var errConfirmRequired = errors.New("cleanup requires --confirm")

var (
	indexToolID     string
	indexSourcePath string
	indexSourceType string
	indexTitle      string
	chunkSize       int
	chunkOverlap    int
	batchSize       int

	statsToolID string

	cleanupToolID     string
	cleanupSourcePath string
	cleanupConfirm    bool

	toolName        string
	toolDescription string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index a single document for a tool",
	Long: `Extracts, chunks, embeds and stores one document. The source type is
detected from the path when --source-type is not given.`,
	RunE: runIndex,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge statistics for a tool",
	RunE:  runStats,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete knowledge chunks for a tool",
	Long: `Permanently deletes the chunks stored for a tool, optionally limited to
one source path. Nothing is deleted unless --confirm is given.`,
	RunE: runCleanup,
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Manage the tool registry",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered tools",
	RunE:  runToolsList,
}

var toolsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new tool",
	RunE:  runToolsAdd,
}

func init() {
	indexCmd.Flags().StringVar(&indexToolID, "tool-id", "", "UUID of the tool this knowledge is for")
	indexCmd.Flags().StringVar(&indexSourcePath, "source-path", "", "Path, s3:// URI or URL of the document")
	indexCmd.Flags().StringVar(&indexSourceType, "source-type", "", "Source type: pdf, url, text or markdown (detected when empty)")
	indexCmd.Flags().StringVar(&indexTitle, "title", "", "Custom title for the document")
	addPipelineFlags(indexCmd)
	_ = indexCmd.MarkFlagRequired("tool-id")
	_ = indexCmd.MarkFlagRequired("source-path")

	statsCmd.Flags().StringVar(&statsToolID, "tool-id", "", "UUID of the tool")
	_ = statsCmd.MarkFlagRequired("tool-id")

	cleanupCmd.Flags().StringVar(&cleanupToolID, "tool-id", "", "UUID of the tool")
	cleanupCmd.Flags().StringVar(&cleanupSourcePath, "source-path", "", "Only delete chunks from this source")
	cleanupCmd.Flags().BoolVar(&cleanupConfirm, "confirm", false, "Confirm deletion (required)")
	_ = cleanupCmd.MarkFlagRequired("tool-id")

	toolsAddCmd.Flags().StringVar(&toolName, "name", "", "Tool name")
	toolsAddCmd.Flags().StringVar(&toolDescription, "description", "", "Tool description")
	_ = toolsAddCmd.MarkFlagRequired("name")

	toolsCmd.AddCommand(toolsListCmd, toolsAddCmd)
	rootCmd.AddCommand(indexCmd, statsCmd, cleanupCmd, toolsCmd)
}

// addPipelineFlags registers the chunking overrides shared by index and batch.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 1000, "Chunk size in tokens")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 200, "Carry the last two sentences into the next chunk when > 0 (0 disables overlap)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 10, "Embedding batch size")
}

// applyPipelineFlags copies explicitly set flags over the loaded pipeline.
func applyPipelineFlags(cmd *cobra.Command, p *config.Pipeline) error {
	if cmd.Flags().Changed("chunk-size") {
		p.ChunkSize = chunkSize
	}
	if cmd.Flags().Changed("chunk-overlap") {
		p.ChunkOverlap = chunkOverlap
	}
	if cmd.Flags().Changed("batch-size") {
		p.BatchSize = batchSize
	}
	return p.Validate()
}

// openApp wires storage and the indexing pipeline for a one-shot command.
// The API, queue consumer and retry schedule stay off.
func openApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app.App, func(), error) {
	cfg.EnableAPI = false
	cfg.EnableQueue = false
	cfg.RetrySchedule = ""

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(cfg, deps.DB, deps.Chunks, nil, log, nil)
	if err != nil {
		deps.Close()
		return nil, nil, err
	}
	return a, func() {
		a.Close()
		deps.Close()
	}, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	if err := applyPipelineFlags(cmd, &cfg.Pipeline); err != nil {
		return err
	}
	if err := cfg.RequireEmbedder(); err != nil {
		return err
	}

	ctx, stop := commandContext(cmd)
	defer stop()

	a, closeApp, err := openApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeApp()

	res := a.Knowledge.IndexDocument(ctx, knowledge.IndexRequest{
		ToolID:     indexToolID,
		SourcePath: indexSourcePath,
		SourceType: indexSourceType,
		Title:      indexTitle,
	})
	if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("document indexing failed: %s", res.Error)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := commandContext(cmd)
	defer stop()

	a, closeApp, err := openApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeApp()

	stats, err := a.Knowledge.GetToolKnowledgeStats(ctx, statsToolID)
	if err != nil {
		return fmt.Errorf("failed to get tool stats: %w", err)
	}
	return writeJSON(cmd.OutOrStdout(), stats)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	if !cleanupConfirm {
		out := cmd.ErrOrStderr()
		fmt.Fprintln(out, "This will permanently delete knowledge chunks!")
		if cleanupSourcePath != "" {
			fmt.Fprintf(out, "  Filtering by source: %s\n", cleanupSourcePath)
		} else {
			fmt.Fprintln(out, "  All chunks for this tool will be deleted!")
		}
		fmt.Fprintln(out, "  Add --confirm to proceed.")
		return errConfirmRequired
	}

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := commandContext(cmd)
	defer stop()

	a, closeApp, err := openApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeApp()

	deleted, err := a.Knowledge.CleanupToolKnowledge(ctx, cleanupToolID, cleanupSourcePath)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	cmd.Printf("Cleanup completed: %d chunks deleted\n", deleted)
	return nil
}

func runToolsList(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := commandContext(cmd)
	defer stop()

	a, closeApp, err := openApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeApp()

	tools, err := a.Tools.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tools: %w", err)
	}
	printTools(cmd.OutOrStdout(), tools)
	return nil
}

func runToolsAdd(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := commandContext(cmd)
	defer stop()

	a, closeApp, err := openApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeApp()

	t := &tool.Tool{Name: toolName, Description: toolDescription, IsActive: true}
	if err := a.Tools.Create(ctx, t); err != nil {
		return fmt.Errorf("failed to add tool: %w", err)
	}
	cmd.Printf("Tool %q registered with ID %s\n", t.Name, t.ID)
	return nil
}

func printTools(w io.Writer, tools []tool.Tool) {
	if len(tools) == 0 {
		fmt.Fprintln(w, "No tools registered.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tACTIVE\tDESCRIPTION")
	for _, t := range tools {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", t.ID, t.Name, t.IsActive, truncate(t.Description, 80))
	}
	tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
