package handler

import (
	"net/http"
	"strconv"

	"github.com/segyhp/investment-engine/internal/domain"
	"github.com/segyhp/investment-engine/internal/service"
	customError "github.com/segyhp/investment-engine/pkg/errors"
	"github.com/segyhp/investment-engine/pkg/response"
)

type JobHandler struct {
	elimination *service.EliminationService
}

func NewJobHandler(elimination *service.EliminationService) *JobHandler {
	return &JobHandler{elimination: elimination}
}

// RunElimination handles POST /jobs/elimination/run. A failed scan still
// returns its summary, under the status of the error that stopped it.
func (h *JobHandler) RunElimination(w http.ResponseWriter, r *http.Request) {
	result, err := h.elimination.RunEliminationJob(r.Context(), domain.TriggerManual)
	if err != nil {
		response.JSON(w, response.StatusFor(err), result)
		return
	}

	response.Success(w, result)
}

// EliminationStatus handles GET /jobs/elimination/status
func (h *JobHandler) EliminationStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.elimination.GetEliminationStatus(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, status)
}

// ListEliminationRuns handles GET /jobs/elimination/runs?limit=
func (h *JobHandler) ListEliminationRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.FromError(w, customError.WrapValidation("limit must be an integer"))
			return
		}
		limit = n
	}

	runs, err := h.elimination.ListEliminationRuns(r.Context(), limit)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, runs)
}
