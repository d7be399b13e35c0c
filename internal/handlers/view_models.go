package handlers

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"fcetrainer/internal/exercise"
	"fcetrainer/internal/models"
	"fcetrainer/internal/scoring"
	"fcetrainer/internal/session"
)

type PartSummary struct {
	Part      models.Part
	Title     string
	Path      string
	Available int
	Stats     exercise.LoadStats
	Error     string
}

type HomeViewData struct {
	Title     string
	Parts     []PartSummary
	Attempts  []models.Attempt
	CSRFToken string
}

type ClozeSetupViewData struct {
	Title            string
	Part             models.Part
	Available        int
	TimeLimitSeconds int
	MinSeconds       int
	MaxSeconds       int
	StepSeconds      int
	Stats            exercise.LoadStats
	Error            string
	Notice           string
	CSRFToken        string
}

// ClozeGapView is one gap of an active exercise
type ClozeGapView struct {
	Number  int
	Options []string // Part 1 choices; empty for Part 2
}

// ClozeSegmentView is a run of text or a gap
type ClozeSegmentView struct {
	Text string
	Gap  *ClozeGapView
}

type ClozeExerciseViewData struct {
	Title            string
	Part             models.Part
	ExerciseTitle    string
	URL              string
	Segments         []ClozeSegmentView
	MultipleChoice   bool
	RemainingSeconds int
	Progress         float64
	Recovered        bool
	Warning          string
	CSRFToken        string
}

type ClozeResultsViewData struct {
	Title         string
	Part          models.Part
	ExerciseTitle string
	URL           string
	Result        scoring.ClozeResult
	Percentage    float64
	Reconstructed []scoring.Segment
	TimedOut      bool
	Elapsed       string
	Warning       string
	CSRFToken     string
}

type WordFormationSetupViewData struct {
	Title            string
	Available        int
	Questions        int
	TimeLimitSeconds int
	MinSeconds       int
	MaxSeconds       int
	Stats            exercise.LoadStats
	Error            string
	Notice           string
	CSRFToken        string
}

type WordFormationQuestionViewData struct {
	Title            string
	Number           int
	Total            int
	Score            int
	Item             models.WordFormationItem
	RemainingSeconds int
	TimeLimitSeconds int
	Progress         float64
	Feedback         *session.WordFormationFeedback
	Last             bool
	Notice           string
	CSRFToken        string
}

type WordFormationFinishedViewData struct {
	Title      string
	Score      int
	Total      int
	Percentage float64
	TimeOuts   int
	Notice     string
	CSRFToken  string
}

// render writes the named template with the given status
func render(w http.ResponseWriter, templates *template.Template, name string, data interface{}, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("Error rendering %s: %v", name, err)
	}
}

// formatDuration renders a duration as m:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	seconds := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
