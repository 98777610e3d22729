package image

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/glowlabs/glowchat/backend/internal/model/imagejob"
	"github.com/glowlabs/glowchat/backend/internal/service/imagegen"
	jobtracker "github.com/glowlabs/glowchat/backend/internal/service/imagejob"
	"github.com/glowlabs/glowchat/backend/pkg/utils"
)

// Handler exposes image-generation submission and status polling.
type Handler struct {
	generator *imagegen.Service
	tracker   *jobtracker.Tracker
}

// New creates the image handler. generator may be nil when no worker is
// configured; submissions then report unavailable but polling still works.
func New(generator *imagegen.Service, tracker *jobtracker.Tracker) *Handler {
	return &Handler{
		generator: generator,
		tracker:   tracker,
	}
}

// RegisterRoutes mounts the image endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/image", h.handleGenerate)
	r.Get("/image/{jobID}", h.handleStatus)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Prompt string `json:"prompt"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.Prompt == "" {
		utils.RespondError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	if h.generator == nil {
		utils.RespondError(w, http.StatusInternalServerError, "image generation not configured")
		return
	}

	job := h.generator.Request(payload.Prompt)
	utils.RespondJSON(w, http.StatusAccepted, map[string]string{"jobId": job.ID})
}

// handleStatus answers the polling loop. A swept job reads identically to
// one that never existed; clients treat the 404 as terminal failure.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, ok := h.tracker.Get(jobID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "job not found")
		return
	}

	response := map[string]string{"status": string(job.Status)}
	switch job.Status {
	case imagejob.StatusDone:
		response["imageUrl"] = job.ImageURL
	case imagejob.StatusError:
		response["error"] = job.Error
	}

	utils.RespondJSON(w, http.StatusOK, response)
}
