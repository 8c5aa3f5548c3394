// internal/api/types.go
package api

import (
	"time"

	"portfolio-backend/internal/model"
	"portfolio-backend/internal/syncer"
)

// ErrorResponse is the body of every failure response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RepositoriesResponse is the body of GET /repositories.
type RepositoriesResponse struct {
	Success      bool               `json:"success"`
	Count        int                `json:"count"`
	Repositories []model.Repository `json:"repositories"`
}

// SyncResponse is the body of POST /sync-repos.
type SyncResponse struct {
	Success       bool                `json:"success"`
	Message       string              `json:"message"`
	Total         int                 `json:"total"`
	Processed     int                 `json:"processed"`
	Failed        int                 `json:"failed"`
	Offset        int                 `json:"offset"`
	HasMore       bool                `json:"hasMore"`
	NextOffset    *int                `json:"nextOffset"`
	ExecutionTime string              `json:"executionTime"`
	Errors        []syncer.BatchError `json:"errors,omitempty"`
}

// WebhookResponse is the body of POST /webhook acknowledgements.
type WebhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SendEmailRequest is the body of POST /send-email.
type SendEmailRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// SendEmailResponse is the body of a successful POST /send-email.
type SendEmailResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SyncLogsResponse is the body of GET /sync-logs.
type SyncLogsResponse struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Logs    []model.SyncLog `json:"logs"`
}

// RateLimitResponse is the body of GET /rate-limit.
type RateLimitResponse struct {
	Success   bool      `json:"success"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// webhookPayload is the subset of a GitHub webhook body the handler needs.
type webhookPayload struct {
	Action     string             `json:"action"`
	Repository *webhookRepository `json:"repository"`
}

type webhookRepository struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
}
