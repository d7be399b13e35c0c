package handlers

import (
	"errors"
	"html/template"
	"log"
	"net/http"

	"fcetrainer/internal/exercise"
	"fcetrainer/internal/models"
	"fcetrainer/internal/service"
	"fcetrainer/internal/session"
	"fcetrainer/internal/validation"
)

const wordFormationPath = "/word-formation"

// WordFormationHandler serves Part 3, a batch of timed word formation questions
type WordFormationHandler struct {
	trainer    *service.TrainerService
	middleware *Middleware
	templates  *template.Template
}

// NewWordFormationHandler creates a new word formation handler
func NewWordFormationHandler(trainer *service.TrainerService, middleware *Middleware, templates *template.Template) *WordFormationHandler {
	return &WordFormationHandler{
		trainer:    trainer,
		middleware: middleware,
		templates:  templates,
	}
}

// Show renders the setup screen, the current question or the final score
func (h *WordFormationHandler) Show(w http.ResponseWriter, r *http.Request) {
	traineeID := GetTraineeID(r.Context())
	current := h.trainer.WordFormationSession(traineeID)
	notice := notices[r.URL.Query().Get("notice")]

	switch current.Phase {
	case session.PhaseActive, session.PhaseSubmitted:
		h.renderQuestion(w, traineeID, current, notice)
	case session.PhaseFinished:
		data := WordFormationFinishedViewData{
			Title:      models.PartWordFormation.Title(),
			Score:      current.Score,
			Total:      current.Total(),
			Percentage: current.Percentage(),
			TimeOuts:   current.TimeOuts,
			Notice:     notice,
			CSRFToken:  h.middleware.GetCSRFToken(traineeID),
		}
		render(w, h.templates, "word_formation_finished.tmpl", data, http.StatusOK)
	default:
		h.renderSetup(w, traineeID, 0, int(session.DefaultQuestionTimeLimit.Seconds()), "", notice, http.StatusOK)
	}
}

// Start draws a new batch of questions
func (h *WordFormationHandler) Start(w http.ResponseWriter, r *http.Request) {
	traineeID := GetTraineeID(r.Context())

	count, err := validation.ParseCount("questions", r.PostFormValue("questions"))
	limit := session.DefaultQuestionTimeLimit
	if err == nil {
		limit, err = validation.ParseSeconds("time_limit", r.PostFormValue("time_limit"))
	}
	if err == nil {
		_, err = h.trainer.StartWordFormation(traineeID, count, limit)
	}

	var validationErr validation.ValidationError
	switch {
	case err == nil:
		http.Redirect(w, r, wordFormationPath, http.StatusSeeOther)
	case errors.As(err, &validationErr):
		seconds := int(limit.Seconds())
		if seconds == 0 {
			seconds = int(session.DefaultQuestionTimeLimit.Seconds())
		}
		h.renderSetup(w, traineeID, count, seconds, validationErr.Error(), "", http.StatusBadRequest)
	case errors.Is(err, exercise.ErrDataUnavailable):
		h.renderSetup(w, traineeID, 0, int(session.DefaultQuestionTimeLimit.Seconds()), dataUnavailableMessage(models.PartWordFormation), "", http.StatusOK)
	default:
		respondWithError(w, http.StatusInternalServerError, "Failed to start exercise", "Error starting word formation session", err)
	}
}

// Submit checks the answer to the current question
func (h *WordFormationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	_, err := h.trainer.SubmitWordFormation(GetTraineeID(r.Context()), r.PostFormValue("answer"))
	h.redirectAfter(w, r, err, "Error submitting word formation answer")
}

// Advance moves on to the next question or the final score
func (h *WordFormationHandler) Advance(w http.ResponseWriter, r *http.Request) {
	_, err := h.trainer.AdvanceWordFormation(GetTraineeID(r.Context()))
	h.redirectAfter(w, r, err, "Error advancing word formation session")
}

// Reset discards the batch and returns to the setup screen
func (h *WordFormationHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.trainer.ResetWordFormation(GetTraineeID(r.Context()))
	http.Redirect(w, r, wordFormationPath, http.StatusSeeOther)
}

func (h *WordFormationHandler) redirectAfter(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	target := wordFormationPath
	switch {
	case err == nil:
	case errors.Is(err, service.ErrSessionLost):
		log.Printf("%s: %v", logMsg, err)
		target += "?notice=lost"
	case errors.Is(err, session.ErrInvalidTransition):
		target += "?notice=transition"
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *WordFormationHandler) renderSetup(w http.ResponseWriter, traineeID string, questions, seconds int, errMsg, notice string, status int) {
	available, err := h.trainer.WordFormationAvailable()
	if err != nil && errMsg == "" {
		errMsg = dataUnavailableMessage(models.PartWordFormation)
	}
	if questions <= 0 {
		questions = min(session.DefaultQuestionCount, available)
	}

	data := WordFormationSetupViewData{
		Title:            models.PartWordFormation.Title(),
		Available:        available,
		Questions:        questions,
		TimeLimitSeconds: seconds,
		MinSeconds:       int(session.MinQuestionTimeLimit.Seconds()),
		MaxSeconds:       int(session.MaxQuestionTimeLimit.Seconds()),
		Stats:            h.trainer.SourceStats(models.PartWordFormation),
		Error:            errMsg,
		Notice:           notice,
		CSRFToken:        h.middleware.GetCSRFToken(traineeID),
	}
	render(w, h.templates, "word_formation_setup.tmpl", data, status)
}

func (h *WordFormationHandler) renderQuestion(w http.ResponseWriter, traineeID string, current *session.WordFormationSession, notice string) {
	now := h.trainer.Now()
	data := WordFormationQuestionViewData{
		Title:            models.PartWordFormation.Title(),
		Number:           current.Cursor + 1,
		Total:            current.Total(),
		Score:            current.Score,
		Item:             current.Current(),
		RemainingSeconds: int(current.Remaining(now).Seconds()),
		TimeLimitSeconds: int(current.TimeLimit.Seconds()),
		Progress:         current.Progress(),
		Feedback:         current.Feedback,
		Last:             current.Cursor >= current.Total()-1,
		Notice:           notice,
		CSRFToken:        h.middleware.GetCSRFToken(traineeID),
	}
	render(w, h.templates, "word_formation_question.tmpl", data, http.StatusOK)
}
