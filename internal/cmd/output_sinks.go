package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tutorlink/tutorlink/internal/core"
	"github.com/tutorlink/tutorlink/internal/output"
)

type outputSink struct {
	writer io.Writer
	close  func() error
	path   string
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("output", "table", "Output format: table, json, markdown")
	cmd.Flags().String("out", "", "Write output to file instead of stdout")
}

func resolveOutputFormat(cmd *cobra.Command) (output.Format, error) {
	value, err := cmd.Flags().GetString("output")
	if err != nil {
		return "", err
	}
	return output.ParseFormat(value)
}

func openSink(cmd *cobra.Command, path string) (*outputSink, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "-" {
		return &outputSink{writer: cmd.OutOrStdout(), close: func() error { return nil }, path: "-"}, nil
	}

	if err := os.MkdirAll(filepath.Dir(trimmed), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(trimmed) // #nosec G304 -- output path is user-provided
	if err != nil {
		return nil, err
	}
	return &outputSink{writer: file, close: file.Close, path: trimmed}, nil
}

// writeResults renders results in the command's --output format to its
// --out target.
func writeResults(cmd *cobra.Command, results []core.Result) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	rendered, err := output.FormatResults(format, results)
	if err != nil {
		return err
	}

	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	sink, err := openSink(cmd, outPath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(rendered) != "" {
		if _, err := fmt.Fprintln(sink.writer, rendered); err != nil {
			_ = sink.close()
			return err
		}
	}
	return sink.close()
}

// resultError surfaces a failed single result as a command error.
func resultError(result core.Result) error {
	if result.Failure == nil {
		return nil
	}
	if result.Failure.Kind == core.KindRemoteUnavailable {
		return fmt.Errorf("%w: %s", errRemote, result.Failure.Message)
	}
	return result.Failure
}
