package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ragindexer/features/knowledge"
)

var errUnsupportedBatchFile = errors.New("batch file must be JSON, CSV or YAML")

var (
	batchFile    string
	sampleOutput string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Index every document listed in a batch file",
	Long: `Reads a JSON, CSV or YAML list of documents and indexes them one after
another. Each entry has source_path and tool_id, plus optional source_type
and title. A failed entry is reported and the run continues.`,
	RunE: runBatchCommand,
}

var sampleCmd = &cobra.Command{
	Use:   "create-sample",
	Short: "Write a sample batch file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := writeSampleBatch(sampleOutput); err != nil {
			return err
		}
		cmd.Printf("Sample batch file created: %s\n", sampleOutput)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "batch-file", "", "Path to the batch file (.json, .csv, .yaml)")
	addPipelineFlags(batchCmd)
	_ = batchCmd.MarkFlagRequired("batch-file")

	sampleCmd.Flags().StringVarP(&sampleOutput, "output", "o", "sample_batch.json", "Where to write the sample")

	rootCmd.AddCommand(batchCmd, sampleCmd)
}

// batchItem is one row of a batch file.
type batchItem struct {
	SourcePath string `json:"source_path" yaml:"source_path"`
	ToolID     string `json:"tool_id" yaml:"tool_id"`
	SourceType string `json:"source_type,omitempty" yaml:"source_type,omitempty"`
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
}

func (b batchItem) request() knowledge.IndexRequest {
	return knowledge.IndexRequest{
		ToolID:     strings.TrimSpace(b.ToolID),
		SourcePath: strings.TrimSpace(b.SourcePath),
		SourceType: strings.TrimSpace(b.SourceType),
		Title:      strings.TrimSpace(b.Title),
	}
}

// readBatchFile decodes a batch file, choosing the format by extension.
func readBatchFile(path string) ([]knowledge.IndexRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("batch file not found: %w", err)
	}
	defer f.Close()

	var items []batchItem
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.NewDecoder(f).Decode(&items)
	case ".yaml", ".yml":
		err = yaml.NewDecoder(f).Decode(&items)
	case ".csv":
		items, err = parseCSV(f)
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedBatchFile, path)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	reqs := make([]knowledge.IndexRequest, len(items))
	for i, it := range items {
		reqs[i] = it.request()
	}
	return reqs, nil
}

// parseCSV reads rows keyed by a header line. source_path and tool_id
// columns are required; source_type and title are optional.
func parseCSV(r io.Reader) ([]batchItem, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"source_path", "tool_id"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("csv header is missing %q", required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var items []batchItem
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return items, nil
		}
		if err != nil {
			return nil, err
		}
		items = append(items, batchItem{
			SourcePath: field(rec, "source_path"),
			ToolID:     field(rec, "tool_id"),
			SourceType: field(rec, "source_type"),
			Title:      field(rec, "title"),
		})
	}
}

type documentIndexer interface {
	IndexDocument(ctx context.Context, req knowledge.IndexRequest) knowledge.Result
}

type batchTotals struct {
	Succeeded int
	Failed    int
}

// runBatch indexes each request in order. A cancelled ctx stops the run
// before the next item.
func runBatch(ctx context.Context, idx documentIndexer, reqs []knowledge.IndexRequest, w io.Writer) batchTotals {
	var totals batchTotals
	for i, req := range reqs {
		if ctx.Err() != nil {
			break
		}
		fmt.Fprintf(w, "[%d/%d] %s\n", i+1, len(reqs), req.SourcePath)

		if req.ToolID == "" || req.SourcePath == "" {
			totals.Failed++
			fmt.Fprintln(w, "  failed: entry needs source_path and tool_id")
			continue
		}

		res := idx.IndexDocument(ctx, req)
		if !res.Success {
			totals.Failed++
			fmt.Fprintf(w, "  failed: %s\n", res.Error)
			continue
		}
		totals.Succeeded++
		stored := 0
		if res.Summary != nil {
			stored = res.Summary.Stored
		}
		fmt.Fprintf(w, "  ok: %d chunks stored\n", stored)
	}
	return totals
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	reqs, err := readBatchFile(batchFile)
	if err != nil {
		return err
	}

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

	slog.Info("starting batch indexing", "items", len(reqs), "file", batchFile)
	totals := runBatch(ctx, a.Knowledge, reqs, cmd.OutOrStdout())
	slog.Info("batch indexing completed", "succeeded", totals.Succeeded, "failed", totals.Failed)
	cmd.Printf("Batch complete: %d succeeded, %d failed\n", totals.Succeeded, totals.Failed)
	return ctx.Err()
}

func writeSampleBatch(path string) error {
	sample := []batchItem{
		{
			SourcePath: "./data_sources/perplexity/perplexity_review.pdf",
			ToolID:     "123e4567-e89b-12d3-a456-426614174000",
			SourceType: "pdf",
			Title:      "Perplexity Deep Dive Review",
		},
		{
			SourcePath: "https://example.com/midjourney-guide",
			ToolID:     "987fcdeb-51a2-43d1-9f8e-123456789abc",
			SourceType: "url",
			Title:      "Midjourney User Guide",
		},
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeJSON(f, sample)
}
