package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tutorlink/tutorlink/internal/learning"
	"github.com/tutorlink/tutorlink/internal/observability"
	"github.com/tutorlink/tutorlink/internal/output"
)

var batchCmd = &cobra.Command{
	Use:   "batch <file.json>",
	Short: "Run a batch of learning requests from a JSON file",
	Long: `Read a JSON array of {"type": ..., "params": {...}} items and run them
concurrently through the shared throttle. Results print in input order;
an item that fails never affects the others. Use "-" to read stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("workers", 0, "Concurrent workers (default engine.max_workers)")
	addOutputFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	workers, err := cmd.Flags().GetInt("workers")
	if err != nil {
		return err
	}
	if workers < 0 {
		return errors.New("workers must not be negative")
	}
	if _, err := resolveOutputFormat(cmd); err != nil {
		return err
	}

	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	items, err := parseBatchItems(data)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := buildRuntime(cmd.Context(), cfg, observability.CLILogger, runtimeOptions{role: "batch"})
	if err != nil {
		return err
	}
	defer rt.Close()

	startedAt := time.Now()
	results := rt.service.Batch(cmd.Context(), items, workers)

	if err := writeResults(cmd, results); err != nil {
		return err
	}
	logThroughput(output.Count(results), startedAt)
	return nil
}

// parseBatchItems accepts a bare array or a {"requests": [...]} document,
// the same body the batch endpoint takes.
func parseBatchItems(data []byte) ([]learning.BatchItem, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("batch file is empty")
	}

	var items []learning.BatchItem
	if trimmed[0] == '{' {
		var doc struct {
			Requests []learning.BatchItem `json:"requests"`
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("parse batch file: %w", err)
		}
		items = doc.Requests
	} else if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("parse batch file: %w", err)
	}

	if len(items) == 0 {
		return nil, errors.New("no requests found in batch file")
	}
	return items, nil
}

func logThroughput(tally output.Tally, startedAt time.Time) {
	elapsed := time.Since(startedAt)
	perMinute := 0.0
	if elapsed > 0 {
		perMinute = float64(tally.Total) / elapsed.Minutes()
	}
	observability.CLILogger.Info("Batch complete",
		zap.Int("items", tally.Total),
		zap.Int("succeeded", tally.Success),
		zap.Int("fallback", tally.Fallback),
		zap.Int("failed", tally.Failed),
		zap.Duration("elapsed", elapsed),
		zap.Float64("items_per_minute", perMinute))
}
