package learning

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// GradeRequest asks for a score and feedback on a student answer.
type GradeRequest struct {
	Question              string `json:"question"`
	Rubric                string `json:"rubric"`
	StudentAnswer         string `json:"student_answer"`
	Language              string `json:"language,omitempty"`
	Complexity            string `json:"complexity,omitempty"`
	PositiveReinforcement *bool  `json:"positive_reinforcement,omitempty"`
	EncourageSpecificity  *bool  `json:"encourage_specificity,omitempty"`
}

func (r GradeRequest) slug() string { return SlugGrade }

func (r GradeRequest) vars() (map[string]string, error) {
	if err := requireFields("question", r.Question, "rubric", r.Rubric, "student_answer", r.StudentAnswer); err != nil {
		return nil, err
	}
	return map[string]string{
		"question":               r.Question,
		"rubric":                 r.Rubric,
		"student_answer":         r.StudentAnswer,
		"language":               r.Language,
		"complexity":             r.Complexity,
		"positive_reinforcement": flag(r.PositiveReinforcement),
		"encourage_specificity":  flag(r.EncourageSpecificity),
	}, nil
}

// ExplanationRequest asks for a concept explanation.
type ExplanationRequest struct {
	Topic             string   `json:"topic"`
	GradeLevel        string   `json:"grade_level,omitempty"`
	Language          string   `json:"language,omitempty"`
	Style             string   `json:"style,omitempty"`
	PreviousKnowledge []string `json:"previous_knowledge,omitempty"`
}

func (r ExplanationRequest) slug() string { return SlugExplanation }

func (r ExplanationRequest) vars() (map[string]string, error) {
	if err := requireFields("topic", r.Topic); err != nil {
		return nil, err
	}
	return map[string]string{
		"topic":              r.Topic,
		"grade_level":        r.GradeLevel,
		"language":           r.Language,
		"style":              r.Style,
		"previous_knowledge": list(r.PreviousKnowledge),
	}, nil
}

// SummaryRequest asks for a summary of learning material.
type SummaryRequest struct {
	Content      string `json:"content"`
	BulletPoints int    `json:"bullet_points,omitempty"`
	Language     string `json:"language,omitempty"`
}

func (r SummaryRequest) slug() string { return SlugSummary }

func (r SummaryRequest) vars() (map[string]string, error) {
	if err := requireFields("content", r.Content); err != nil {
		return nil, err
	}
	if r.BulletPoints < 0 {
		return nil, invalidf("bullet_points must not be negative")
	}
	return map[string]string{
		"content":       r.Content,
		"bullet_points": count(r.BulletPoints),
		"language":      r.Language,
	}, nil
}

// QuizRequest asks for quiz questions.
type QuizRequest struct {
	Topic        string `json:"topic"`
	NumQuestions int    `json:"num_questions,omitempty"`
	QuestionType string `json:"question_type,omitempty"`
	Difficulty   string `json:"difficulty,omitempty"`
	GradeLevel   string `json:"grade_level,omitempty"`
	Language     string `json:"language,omitempty"`
}

func (r QuizRequest) slug() string { return SlugQuiz }

func (r QuizRequest) vars() (map[string]string, error) {
	if err := requireFields("topic", r.Topic); err != nil {
		return nil, err
	}
	if r.NumQuestions < 0 || r.NumQuestions > MaxItems {
		return nil, invalidf("num_questions must be between 1 and %d", MaxItems)
	}
	return map[string]string{
		"topic":         r.Topic,
		"num_questions": count(r.NumQuestions),
		"question_type": r.QuestionType,
		"difficulty":    r.Difficulty,
		"grade_level":   r.GradeLevel,
		"language":      r.Language,
	}, nil
}

// FlashcardRequest asks for flashcards.
type FlashcardRequest struct {
	Topic    string `json:"topic"`
	NumCards int    `json:"num_cards,omitempty"`
	Language string `json:"language,omitempty"`
}

func (r FlashcardRequest) slug() string { return SlugFlashcards }

func (r FlashcardRequest) vars() (map[string]string, error) {
	if err := requireFields("topic", r.Topic); err != nil {
		return nil, err
	}
	if r.NumCards < 0 || r.NumCards > MaxItems {
		return nil, invalidf("num_cards must be between 1 and %d", MaxItems)
	}
	return map[string]string{
		"topic":     r.Topic,
		"num_cards": count(r.NumCards),
		"language":  r.Language,
	}, nil
}

// ChatRequest is one student message in a tutor session.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Subject   string `json:"subject,omitempty"`
	Tone      string `json:"tone,omitempty"`
	Language  string `json:"language,omitempty"`
}

func (r ChatRequest) slug() string { return SlugTutorChat }

func (r ChatRequest) vars() (map[string]string, error) {
	if err := requireFields("session_id", r.SessionID, "message", r.Message); err != nil {
		return nil, err
	}
	return map[string]string{
		"message":  r.Message,
		"subject":  r.Subject,
		"tone":     r.Tone,
		"language": r.Language,
	}, nil
}

// LessonPlanRequest asks for a lesson plan.
type LessonPlanRequest struct {
	Topic              string   `json:"topic"`
	GradeLevel         string   `json:"grade_level"`
	DurationMinutes    int      `json:"duration_minutes,omitempty"`
	LearningObjectives []string `json:"learning_objectives,omitempty"`
	Language           string   `json:"language,omitempty"`
}

func (r LessonPlanRequest) slug() string { return SlugLessonPlan }

func (r LessonPlanRequest) vars() (map[string]string, error) {
	if err := requireFields("topic", r.Topic, "grade_level", r.GradeLevel); err != nil {
		return nil, err
	}
	if r.DurationMinutes < 0 {
		return nil, invalidf("duration_minutes must not be negative")
	}
	return map[string]string{
		"topic":               r.Topic,
		"grade_level":         r.GradeLevel,
		"duration_minutes":    count(r.DurationMinutes),
		"learning_objectives": list(r.LearningObjectives),
		"language":            r.Language,
	}, nil
}

// ResourceRequest asks for teaching resources.
type ResourceRequest struct {
	Topic        string `json:"topic"`
	ResourceType string `json:"resource_type,omitempty"`
	GradeLevel   string `json:"grade_level,omitempty"`
	Language     string `json:"language,omitempty"`
}

func (r ResourceRequest) slug() string { return SlugResources }

func (r ResourceRequest) vars() (map[string]string, error) {
	if err := requireFields("topic", r.Topic); err != nil {
		return nil, err
	}
	return map[string]string{
		"topic":         r.Topic,
		"resource_type": r.ResourceType,
		"grade_level":   r.GradeLevel,
		"language":      r.Language,
	}, nil
}

// PerformanceRequest asks for performance flags.
type PerformanceRequest struct {
	StudentData     map[string]any `json:"student_data"`
	RecentScores    []float64      `json:"recent_scores"`
	CompletedTopics []string       `json:"completed_topics,omitempty"`
	Language        string         `json:"language,omitempty"`
}

func (r PerformanceRequest) slug() string { return SlugPerformance }

func (r PerformanceRequest) vars() (map[string]string, error) {
	if len(r.StudentData) == 0 {
		return nil, invalidf("student_data is required")
	}
	if len(r.RecentScores) == 0 {
		return nil, invalidf("recent_scores is required")
	}
	data, err := json.Marshal(r.StudentData)
	if err != nil {
		return nil, invalidf("student_data: %v", err)
	}
	scores := make([]string, len(r.RecentScores))
	for i, score := range r.RecentScores {
		scores[i] = strconv.FormatFloat(score, 'g', -1, 64)
	}
	return map[string]string{
		"student_data":     string(data),
		"recent_scores":    strings.Join(scores, ", "),
		"completed_topics": list(r.CompletedTopics),
		"language":         r.Language,
	}, nil
}

// LearningPathRequest asks for the next recommended topic.
type LearningPathRequest struct {
	CurrentLevel           string   `json:"current_level"`
	TargetGoals            []string `json:"target_goals"`
	PreferredLearningStyle string   `json:"preferred_learning_style,omitempty"`
	AvailableTopics        []string `json:"available_topics,omitempty"`
	Language               string   `json:"language,omitempty"`
}

func (r LearningPathRequest) slug() string { return SlugLearningPath }

func (r LearningPathRequest) vars() (map[string]string, error) {
	if err := requireFields("current_level", r.CurrentLevel, "target_goals", list(r.TargetGoals)); err != nil {
		return nil, err
	}
	return map[string]string{
		"current_level":            r.CurrentLevel,
		"target_goals":             list(r.TargetGoals),
		"preferred_learning_style": r.PreferredLearningStyle,
		"available_topics":         list(r.AvailableTopics),
		"language":                 r.Language,
	}, nil
}

// StudyGuideRequest asks for a study guide.
type StudyGuideRequest struct {
	Topics    []string `json:"topics"`
	ExamFocus string   `json:"exam_focus,omitempty"`
	Language  string   `json:"language,omitempty"`
}

func (r StudyGuideRequest) slug() string { return SlugStudyGuide }

func (r StudyGuideRequest) vars() (map[string]string, error) {
	if err := requireFields("topics", list(r.Topics)); err != nil {
		return nil, err
	}
	return map[string]string{
		"topics":     list(r.Topics),
		"exam_focus": r.ExamFocus,
		"language":   r.Language,
	}, nil
}

// requireFields checks name/value pairs and reports every blank one.
func requireFields(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return invalidf("missing required fields: %s", strings.Join(missing, ", "))
}

// flag renders an optional bool for {{#if}} blocks. Unset means true.
func flag(b *bool) string {
	if b != nil && !*b {
		return ""
	}
	return "yes"
}

func count(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func list(items []string) string {
	clean := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			clean = append(clean, item)
		}
	}
	return strings.Join(clean, ", ")
}

// describeContext renders a session context as sorted "key: value" lines.
func describeContext(ctx map[string]string) string {
	keys := make([]string, 0, len(ctx))
	for key, value := range ctx {
		if strings.TrimSpace(value) != "" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, key := range keys {
		lines[i] = fmt.Sprintf("%s: %s", key, ctx[key])
	}
	return strings.Join(lines, "\n")
}
