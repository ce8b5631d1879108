package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/segyhp/investment-engine/internal/domain"
	"github.com/segyhp/investment-engine/internal/service"
	customError "github.com/segyhp/investment-engine/pkg/errors"
	"github.com/segyhp/investment-engine/pkg/response"
)

type InvestmentHandler struct {
	service   *service.InvestmentService
	validator *validator.Validate
}

func NewInvestmentHandler(service *service.InvestmentService) *InvestmentHandler {
	return &InvestmentHandler{
		service:   service,
		validator: newValidator(),
	}
}

// CreateProject handles POST /projects
func (h *InvestmentHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProjectRequest
	if err := decodeAndValidate(r, h.validator, &req); err != nil {
		response.FromError(w, err)
		return
	}

	project, err := h.service.CreateProject(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, project)
}

// ListProjects handles GET /projects
func (h *InvestmentHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.ListProjects(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, projects)
}

// GetProject handles GET /projects/{projectId}
func (h *InvestmentHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "projectId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	project, err := h.service.GetProject(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, project)
}

// CreateInvestment handles POST /investments
func (h *InvestmentHandler) CreateInvestment(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateInvestmentRequest
	if err := decodeAndValidate(r, h.validator, &req); err != nil {
		response.FromError(w, err)
		return
	}

	investment, err := h.service.CreateInvestment(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, h.service.Describe(investment))
}

// GetInvestment handles GET /investments/{investmentId}
func (h *InvestmentHandler) GetInvestment(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "investmentId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	investment, err := h.service.GetInvestment(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, investment)
}

// ConfirmPayment handles POST /investments/{investmentId}/confirm
func (h *InvestmentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "investmentId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	var req domain.PaymentResult
	if err := decodeAndValidate(r, h.validator, &req); err != nil {
		response.FromError(w, err)
		return
	}

	result, err := h.service.ConfirmPayment(r.Context(), id, req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, result)
}

// Pay handles POST /investments/{investmentId}/pay
func (h *InvestmentHandler) Pay(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "investmentId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	var req domain.PayRequest
	if err := decodeAndValidate(r, h.validator, &req); err != nil {
		response.FromError(w, err)
		return
	}

	result, err := h.service.Pay(r.Context(), id, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, result)
}

// ListUserInvestments handles GET /users/{userId}/investments
func (h *InvestmentHandler) ListUserInvestments(w http.ResponseWriter, r *http.Request) {
	investments, err := h.service.ListUserInvestments(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, investments)
}

// ListNotifications handles GET /users/{userId}/notifications?unread=true
func (h *InvestmentHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	unreadOnly := false
	if raw := r.URL.Query().Get("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.FromError(w, customError.WrapValidation("unread must be true or false"))
			return
		}
		unreadOnly = v
	}

	notifications, err := h.service.ListNotifications(r.Context(), mux.Vars(r)["userId"], unreadOnly)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, notifications)
}

// MarkNotificationRead handles POST /notifications/{notificationId}/read
func (h *InvestmentHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "notificationId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	if err := h.service.MarkNotificationRead(r.Context(), id); err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{"id": id, "read": true})
}

// QuoteDeposit handles GET /deposits/quote?amount=
func (h *InvestmentHandler) QuoteDeposit(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("amount"))
	if raw == "" {
		response.FromError(w, customError.WrapValidation("amount is required"))
		return
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		response.FromError(w, customError.WrapValidation("amount must be a number"))
		return
	}

	quote, err := h.service.QuoteDeposit(amount)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, quote)
}
