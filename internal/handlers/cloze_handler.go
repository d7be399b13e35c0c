package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"

	"fcetrainer/internal/exercise"
	"fcetrainer/internal/models"
	"fcetrainer/internal/scoring"
	"fcetrainer/internal/service"
	"fcetrainer/internal/session"
	"fcetrainer/internal/validation"
)

// ClozeHandler serves Part 1 (multiple-choice cloze) and Part 2 (open cloze)
type ClozeHandler struct {
	trainer    *service.TrainerService
	middleware *Middleware
	templates  *template.Template
}

// NewClozeHandler creates a new cloze handler
func NewClozeHandler(trainer *service.TrainerService, middleware *Middleware, templates *template.Template) *ClozeHandler {
	return &ClozeHandler{
		trainer:    trainer,
		middleware: middleware,
		templates:  templates,
	}
}

func clozePartFromPath(r *http.Request) (models.Part, bool) {
	part, ok := models.ParsePart(r.PathValue("part"))
	if !ok || !part.IsCloze() {
		return "", false
	}
	return part, true
}

func clozePath(part models.Part) string {
	return "/part/" + string(part)
}

// ShowPart renders the setup screen, the running exercise or the results,
// depending on the session phase
func (h *ClozeHandler) ShowPart(w http.ResponseWriter, r *http.Request) {
	part, ok := clozePartFromPath(r)
	if !ok {
		http.Error(w, ErrUnknownPart, http.StatusNotFound)
		return
	}
	traineeID := GetTraineeID(r.Context())

	current, err := h.trainer.ClozeSession(traineeID, part)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error loading cloze session", err)
		return
	}

	notice := notices[r.URL.Query().Get("notice")]

	switch current.Phase {
	case session.PhaseActive:
		h.renderExercise(w, traineeID, current, notice)
	case session.PhaseSubmitted:
		h.renderResults(w, traineeID, current, notice)
	default:
		h.renderSetup(w, traineeID, part, int(session.DefaultClozeTimeLimit.Seconds()), "", notice, http.StatusOK)
	}
}

// StartPart starts a new exercise with the chosen time limit
func (h *ClozeHandler) StartPart(w http.ResponseWriter, r *http.Request) {
	part, ok := clozePartFromPath(r)
	if !ok {
		http.Error(w, ErrUnknownPart, http.StatusNotFound)
		return
	}
	traineeID := GetTraineeID(r.Context())

	limit, err := validation.ParseSeconds("time_limit", r.PostFormValue("time_limit"))
	if err == nil {
		_, err = h.trainer.StartCloze(traineeID, part, limit)
	}

	var validationErr validation.ValidationError
	switch {
	case err == nil:
		http.Redirect(w, r, clozePath(part), http.StatusSeeOther)
	case errors.As(err, &validationErr):
		seconds := int(limit.Seconds())
		if seconds == 0 {
			seconds = int(session.DefaultClozeTimeLimit.Seconds())
		}
		h.renderSetup(w, traineeID, part, seconds, validationErr.Error(), "", http.StatusBadRequest)
	case errors.Is(err, exercise.ErrDataUnavailable):
		h.renderSetup(w, traineeID, part, int(session.DefaultClozeTimeLimit.Seconds()), dataUnavailableMessage(part), "", http.StatusOK)
	default:
		respondWithError(w, http.StatusInternalServerError, "Failed to start exercise", "Error starting cloze session", err)
	}
}

// SubmitPart scores the posted answers, one form field per gap
func (h *ClozeHandler) SubmitPart(w http.ResponseWriter, r *http.Request) {
	part, ok := clozePartFromPath(r)
	if !ok {
		http.Error(w, ErrUnknownPart, http.StatusNotFound)
		return
	}
	traineeID := GetTraineeID(r.Context())

	current, err := h.trainer.ClozeSession(traineeID, part)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error loading cloze session", err)
		return
	}

	answers := make([]string, current.Exercise.GapCount())
	for i := range answers {
		answers[i] = r.PostFormValue(gapField(i + 1))
	}

	_, err = h.trainer.SubmitCloze(traineeID, part, answers)
	h.redirectAfter(w, r, part, err, "Error submitting cloze answers")
}

// RetryPart swaps in a different text
func (h *ClozeHandler) RetryPart(w http.ResponseWriter, r *http.Request) {
	part, ok := clozePartFromPath(r)
	if !ok {
		http.Error(w, ErrUnknownPart, http.StatusNotFound)
		return
	}

	_, err := h.trainer.RetryCloze(GetTraineeID(r.Context()), part)
	h.redirectAfter(w, r, part, err, "Error retrying cloze session")
}

// ResetPart returns to the setup screen
func (h *ClozeHandler) ResetPart(w http.ResponseWriter, r *http.Request) {
	part, ok := clozePartFromPath(r)
	if !ok {
		http.Error(w, ErrUnknownPart, http.StatusNotFound)
		return
	}

	h.trainer.ResetCloze(GetTraineeID(r.Context()), part)
	http.Redirect(w, r, clozePath(part), http.StatusSeeOther)
}

// redirectAfter sends the trainee back to the part page, carrying a notice
// for errors the page can explain
func (h *ClozeHandler) redirectAfter(w http.ResponseWriter, r *http.Request, part models.Part, err error, logMsg string) {
	target := clozePath(part)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrInsufficientPool):
		target += "?notice=no-other"
	case errors.Is(err, service.ErrSessionLost):
		target += "?notice=lost"
	case errors.Is(err, session.ErrInvalidTransition):
		target += "?notice=transition"
	case errors.Is(err, exercise.ErrDataUnavailable):
		log.Printf("%s: %v", logMsg, err)
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *ClozeHandler) renderSetup(w http.ResponseWriter, traineeID string, part models.Part, seconds int, errMsg, notice string, status int) {
	available, err := h.trainer.ClozeAvailable(part)
	if err != nil && errMsg == "" {
		errMsg = dataUnavailableMessage(part)
	}

	data := ClozeSetupViewData{
		Title:            part.Title(),
		Part:             part,
		Available:        available,
		TimeLimitSeconds: seconds,
		MinSeconds:       int(session.MinClozeTimeLimit.Seconds()),
		MaxSeconds:       int(session.MaxClozeTimeLimit.Seconds()),
		StepSeconds:      int(session.ClozeTimeLimitStep.Seconds()),
		Stats:            h.trainer.SourceStats(part),
		Error:            errMsg,
		Notice:           notice,
		CSRFToken:        h.middleware.GetCSRFToken(traineeID),
	}
	render(w, h.templates, "cloze_setup.tmpl", data, status)
}

func (h *ClozeHandler) renderExercise(w http.ResponseWriter, traineeID string, current *session.ClozeSession, notice string) {
	now := h.trainer.Now()
	if current.Recovered && notice == "" {
		notice = NoticeRecovered
	}

	data := ClozeExerciseViewData{
		Title:            current.Part.Title(),
		Part:             current.Part,
		ExerciseTitle:    current.Exercise.Title,
		URL:              current.Exercise.URL,
		Segments:         exerciseSegments(current.Exercise),
		MultipleChoice:   current.Part == models.PartMultipleChoice,
		RemainingSeconds: int(current.Remaining(now).Seconds()),
		Progress:         current.Progress(now),
		Recovered:        current.Recovered,
		Warning:          notice,
		CSRFToken:        h.middleware.GetCSRFToken(traineeID),
	}
	render(w, h.templates, "cloze_exercise.tmpl", data, http.StatusOK)
}

func (h *ClozeHandler) renderResults(w http.ResponseWriter, traineeID string, current *session.ClozeSession, notice string) {
	submission := current.Submission
	data := ClozeResultsViewData{
		Title:         current.Part.Title(),
		Part:          current.Part,
		ExerciseTitle: current.Exercise.Title,
		URL:           current.Exercise.URL,
		Result:        submission.Result,
		Percentage:    submission.Result.Percentage(),
		Reconstructed: submission.Reconstructed,
		TimedOut:      submission.TimedOut,
		Elapsed:       formatDuration(submission.Elapsed),
		Warning:       notice,
		CSRFToken:     h.middleware.GetCSRFToken(traineeID),
	}
	render(w, h.templates, "cloze_results.tmpl", data, http.StatusOK)
}

// exerciseSegments lays out the exercise text with numbered gaps and, for
// Part 1, the choices of each gap. Answers are not exposed.
func exerciseSegments(e models.ClozeExercise) []ClozeSegmentView {
	var segments []ClozeSegmentView
	for _, seg := range scoring.Segments(e.Text, e.Answers) {
		if seg.Gap == 0 {
			segments = append(segments, ClozeSegmentView{Text: seg.Text})
			continue
		}
		segments = append(segments, ClozeSegmentView{
			Gap: &ClozeGapView{Number: seg.Gap, Options: e.OptionsFor(seg.Gap - 1)},
		})
	}
	return segments
}

func gapField(n int) string {
	return fmt.Sprintf("gap_%d", n)
}

func dataUnavailableMessage(part models.Part) string {
	return fmt.Sprintf("No exercises are available for %s. Check the data source and try again.", part.Title())
}
