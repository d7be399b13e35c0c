package handlers

import (
	"html/template"
	"log"
	"net/http"

	"fcetrainer/internal/models"
	"fcetrainer/internal/service"
)

const recentAttemptsLimit = 10

// HomeHandler serves the part menu
type HomeHandler struct {
	trainer    *service.TrainerService
	middleware *Middleware
	templates  *template.Template
}

// NewHomeHandler creates a new home handler
func NewHomeHandler(trainer *service.TrainerService, middleware *Middleware, templates *template.Template) *HomeHandler {
	return &HomeHandler{
		trainer:    trainer,
		middleware: middleware,
		templates:  templates,
	}
}

// ShowHome lists the three parts with their data source status and the
// trainee's recent attempts
func (h *HomeHandler) ShowHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	traineeID := GetTraineeID(r.Context())

	parts := make([]PartSummary, 0, len(models.Parts))
	for _, part := range models.Parts {
		summary := PartSummary{
			Part:  part,
			Title: part.Title(),
			Path:  clozePath(part),
			Stats: h.trainer.SourceStats(part),
		}

		var err error
		if part.IsCloze() {
			summary.Available, err = h.trainer.ClozeAvailable(part)
		} else {
			summary.Path = wordFormationPath
			summary.Available, err = h.trainer.WordFormationAvailable()
		}
		if err != nil {
			summary.Error = dataUnavailableMessage(part)
		}
		parts = append(parts, summary)
	}

	attempts, err := h.trainer.RecentAttempts(traineeID, recentAttemptsLimit)
	if err != nil {
		log.Printf("Error loading recent attempts: %v", err)
	}

	data := HomeViewData{
		Title:     "FCE Trainer",
		Parts:     parts,
		Attempts:  attempts,
		CSRFToken: h.middleware.GetCSRFToken(traineeID),
	}
	render(w, h.templates, "home.tmpl", data, http.StatusOK)
}
