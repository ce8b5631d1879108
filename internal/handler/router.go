package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/segyhp/investment-engine/pkg/response"
)

// NewRouter wires every route under /api/v1 plus the health checks.
func NewRouter(investments *InvestmentHandler, jobs *JobHandler, streams *StreamHandler, health *HealthHandler, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.RecoveryMiddleware(logger), response.LoggingMiddleware(logger), response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", health.Ready).Methods(http.MethodGet)

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/projects", investments.CreateProject).Methods(http.MethodPost)
	api.HandleFunc("/projects", investments.ListProjects).Methods(http.MethodGet)
	api.HandleFunc("/projects/{projectId}", investments.GetProject).Methods(http.MethodGet)

	api.HandleFunc("/investments", investments.CreateInvestment).Methods(http.MethodPost)
	api.HandleFunc("/investments/{investmentId}", investments.GetInvestment).Methods(http.MethodGet)
	api.HandleFunc("/investments/{investmentId}/confirm", investments.ConfirmPayment).Methods(http.MethodPost)
	api.HandleFunc("/investments/{investmentId}/pay", investments.Pay).Methods(http.MethodPost)

	api.HandleFunc("/users/{userId}/investments", investments.ListUserInvestments).Methods(http.MethodGet)
	api.HandleFunc("/users/{userId}/notifications", investments.ListNotifications).Methods(http.MethodGet)
	api.HandleFunc("/users/{userId}/notifications/stream", streams.NotificationStream).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{notificationId}/read", investments.MarkNotificationRead).Methods(http.MethodPost)

	api.HandleFunc("/deposits/quote", investments.QuoteDeposit).Methods(http.MethodGet)

	api.HandleFunc("/jobs/elimination/run", jobs.RunElimination).Methods(http.MethodPost)
	api.HandleFunc("/jobs/elimination/status", jobs.EliminationStatus).Methods(http.MethodGet)
	api.HandleFunc("/jobs/elimination/runs", jobs.ListEliminationRuns).Methods(http.MethodGet)

	return router
}
