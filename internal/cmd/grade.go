package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tutorlink/tutorlink/internal/core"
	"github.com/tutorlink/tutorlink/internal/learning"
	"github.com/tutorlink/tutorlink/internal/observability"
)

var gradeCmd = &cobra.Command{
	Use:   "grade",
	Short: "Grade a student answer against a rubric",
	Long: `Grade a student answer and print a score in [0, 1] with feedback.

The answer can be passed inline with --answer or read from a file with
--answer-file ("-" reads stdin).`,
	Example: `  tutorlink grade --question "Why is the sky blue?" \
    --rubric "Mentions Rayleigh scattering" --answer "Because of scattering"`,
	Args: cobra.NoArgs,
	RunE: runGrade,
}

func init() {
	rootCmd.AddCommand(gradeCmd)

	gradeCmd.Flags().String("question", "", "Question the student answered")
	gradeCmd.Flags().String("rubric", "", "Grading rubric")
	gradeCmd.Flags().String("answer", "", "Student answer")
	gradeCmd.Flags().String("answer-file", "", "Read the student answer from a file (- for stdin)")
	gradeCmd.Flags().String("language", "", "Feedback language")
	gradeCmd.Flags().String("complexity", "", "Feedback complexity (e.g. simple, detailed)")
	gradeCmd.Flags().Bool("positive-reinforcement", true, "Open feedback with what the student did well")
	gradeCmd.Flags().Bool("encourage-specificity", true, "Ask for concrete improvements")
	addOutputFlags(gradeCmd)
}

func runGrade(cmd *cobra.Command, args []string) error {
	req, err := gradeRequestFromFlags(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := buildRuntime(cmd.Context(), cfg, observability.CLILogger, runtimeOptions{role: "grading"})
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := rt.service.Grade(cmd.Context(), req)
	if err != nil {
		return err
	}
	if err := writeResults(cmd, []core.Result{result}); err != nil {
		return err
	}
	return resultError(result)
}

func gradeRequestFromFlags(cmd *cobra.Command) (learning.GradeRequest, error) {
	flags := cmd.Flags()
	question, _ := flags.GetString("question")
	rubric, _ := flags.GetString("rubric")
	answer, _ := flags.GetString("answer")
	answerFile, _ := flags.GetString("answer-file")
	language, _ := flags.GetString("language")
	complexity, _ := flags.GetString("complexity")
	positive, _ := flags.GetBool("positive-reinforcement")
	specific, _ := flags.GetBool("encourage-specificity")

	if strings.TrimSpace(answerFile) != "" {
		if strings.TrimSpace(answer) != "" {
			return learning.GradeRequest{}, fmt.Errorf("--answer and --answer-file are mutually exclusive")
		}
		data, err := readInput(cmd, answerFile)
		if err != nil {
			return learning.GradeRequest{}, err
		}
		answer = string(data)
	}

	return learning.GradeRequest{
		Question:              question,
		Rubric:                rubric,
		StudentAnswer:         answer,
		Language:              language,
		Complexity:            complexity,
		PositiveReinforcement: &positive,
		EncourageSpecificity:  &specific,
	}, nil
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if strings.TrimSpace(path) == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path) // #nosec G304 -- input path is user-provided
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
