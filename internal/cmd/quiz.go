package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tutorlink/tutorlink/internal/core"
	"github.com/tutorlink/tutorlink/internal/learning"
	"github.com/tutorlink/tutorlink/internal/observability"
)

var quizCmd = &cobra.Command{
	Use:     "quiz <topic>",
	Short:   "Generate quiz questions on a topic",
	Example: `  tutorlink quiz "photosynthesis" --count 5 --difficulty easy --output markdown`,
	Args:    cobra.ExactArgs(1),
	RunE:    runQuiz,
}

func init() {
	rootCmd.AddCommand(quizCmd)

	quizCmd.Flags().Int("count", 5, "Number of questions")
	quizCmd.Flags().String("type", "", "Question type (e.g. multiple_choice, short_answer)")
	quizCmd.Flags().String("difficulty", "", "Difficulty (easy, medium, hard)")
	quizCmd.Flags().String("grade-level", "", "Target grade level")
	quizCmd.Flags().String("language", "", "Question language")
	addOutputFlags(quizCmd)
}

func runQuiz(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	count, _ := flags.GetInt("count")
	questionType, _ := flags.GetString("type")
	difficulty, _ := flags.GetString("difficulty")
	gradeLevel, _ := flags.GetString("grade-level")
	language, _ := flags.GetString("language")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := buildRuntime(cmd.Context(), cfg, observability.CLILogger, runtimeOptions{role: "quiz"})
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := rt.service.Quiz(cmd.Context(), learning.QuizRequest{
		Topic:        args[0],
		NumQuestions: count,
		QuestionType: questionType,
		Difficulty:   difficulty,
		GradeLevel:   gradeLevel,
		Language:     language,
	})
	if err != nil {
		return err
	}
	if err := writeResults(cmd, []core.Result{result}); err != nil {
		return err
	}
	return resultError(result)
}
