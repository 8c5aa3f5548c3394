// internal/api/handler.go
package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/singleflight"

	"portfolio-backend/internal/apperrors"
	"portfolio-backend/internal/config"
	"portfolio-backend/internal/metrics"
	"portfolio-backend/internal/model"
	"portfolio-backend/internal/store"
	"portfolio-backend/internal/syncer"
)

const (
	defaultBatchSize   = 5
	defaultListLimit   = 100
	defaultLogLimit    = 50
	maxSyncLogsPerPage = 200
)

// Orchestrator is the sync surface the handlers depend on.
type Orchestrator interface {
	RunBatch(ctx context.Context, batchSize, offset int) (*syncer.BatchResult, error)
	SyncOne(ctx context.Context, owner, name string) (*model.Repository, error)
	DeleteOne(ctx context.Context, githubID int64, fullName string) (bool, error)
}

// Mailer relays a contact-form submission.
type Mailer interface {
	SendContactEmail(ctx context.Context, name, email, message string) error
}

// RateLimitChecker reports remaining GitHub API quota.
type RateLimitChecker interface {
	CheckRateLimit(ctx context.Context) (*model.RateLimit, error)
}

// Handler is the container for API dependencies.
type Handler struct {
	store     store.Store
	orch      Orchestrator
	rateLimit RateLimitChecker
	mailer    Mailer
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *metrics.Metrics

	// syncGroup collapses concurrent identical sync triggers so a
	// double-firing external scheduler does not double-hit GitHub.
	syncGroup singleflight.Group
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(st store.Store, orch Orchestrator, rl RateLimitChecker, mail Mailer, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) http.Handler {
	h := &Handler{
		store:     st,
		orch:      orch,
		rateLimit: rl,
		mailer:    mail,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Hub-Signature-256", "X-GitHub-Event"},
		AllowCredentials: true,
	}))

	// API Routes
	r.Get("/health", h.healthCheck)
	r.Get("/repositories", h.getRepositories)
	r.Post("/sync-repos", h.syncRepos)
	r.Post("/webhook", h.handleWebhook)
	r.Post("/send-email", h.sendEmail)
	r.Get("/sync-logs", h.getSyncLogs)
	r.Get("/rate-limit", h.getRateLimit)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func allowedOrigins(cfg *config.Config) []string {
	origins := []string{"http://localhost:5173", "http://localhost:3000"}
	if cfg.FrontendURL != "" {
		origins = append(origins, cfg.FrontendURL)
	}
	return origins
}

// healthCheck is a simple liveness endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok", Timestamp: time.Now().UTC()})
}

// getRepositories returns the cached repository list.
// GET /repositories
func (h *Handler) getRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := h.store.ListRepositories(r.Context(), defaultListLimit)
	if err != nil {
		h.logger.Error("Failed to fetch repositories", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch repositories", err.Error())
		return
	}
	if repos == nil {
		repos = []model.Repository{}
	}

	respondWithJSON(w, http.StatusOK, RepositoriesResponse{
		Success:      true,
		Count:        len(repos),
		Repositories: repos,
	})
}

// syncRepos triggers one batch of the repository sync.
// POST /sync-repos?batch_size=N&offset=M
func (h *Handler) syncRepos(w http.ResponseWriter, r *http.Request) {
	if h.cfg.SyncSecret != "" {
		auth := r.Header.Get("Authorization")
		if !secureEqual(auth, "Bearer "+h.cfg.SyncSecret) {
			h.logger.Warn("Invalid sync secret")
			respondWithError(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}
	}

	batchSize := queryInt(r, "batch_size", defaultBatchSize)
	offset := queryInt(r, "offset", 0)
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if offset < 0 {
		offset = 0
	}

	key := fmt.Sprintf("%d:%d", batchSize, offset)
	v, err, _ := h.syncGroup.Do(key, func() (any, error) {
		return h.orch.RunBatch(r.Context(), batchSize, offset)
	})
	if err != nil {
		h.logger.Error("Sync batch failed", "error", err)
		respondWithError(w, statusForError(err), "Sync failed", err.Error())
		return
	}
	result := v.(*syncer.BatchResult)

	message := fmt.Sprintf("Processed %d repositories", result.Processed)
	if result.Processed == 0 && result.Failed == 0 {
		message = "No more repositories to process"
	}

	respondWithJSON(w, http.StatusOK, SyncResponse{
		Success:       true,
		Message:       message,
		Total:         result.Total,
		Processed:     result.Processed,
		Failed:        result.Failed,
		Offset:        result.Offset,
		HasMore:       result.HasMore,
		NextOffset:    result.NextOffset,
		ExecutionTime: fmt.Sprintf("%dms", result.ExecutionTimeMs),
		Errors:        result.Errors,
	})
}

// handleWebhook validates a signed GitHub event and maps it onto the
// orchestrator's single-repository paths.
// POST /webhook
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Unreadable request body", "")
		return
	}

	signature := r.Header.Get("X-Hub-Signature-256")
	if !h.verifySignature(body, signature) {
		h.logger.Warn("Invalid webhook signature")
		respondWithError(w, http.StatusUnauthorized, "Invalid signature", "")
		return
	}

	event := r.Header.Get("X-GitHub-Event")
	h.logger.Info("Received webhook", "event", event)
	if h.metrics != nil {
		h.metrics.WebhookEventsTotal.WithLabelValues(event).Inc()
	}

	if event == "ping" {
		respondWithJSON(w, http.StatusOK, WebhookResponse{Success: true, Message: "Pong! Webhook is configured correctly."})
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON payload", "")
		return
	}

	var message string
	switch event {
	case "repository":
		message = fmt.Sprintf("Repository %s processed successfully", payload.Action)
	case "push":
		payload.Action = "updated"
		message = "Push event processed successfully"
	case "release":
		payload.Action = "released"
		message = "Release event processed successfully"
	default:
		respondWithJSON(w, http.StatusOK, WebhookResponse{
			Success: true,
			Message: fmt.Sprintf("Event %s acknowledged but not processed", event),
		})
		return
	}

	if payload.Repository == nil {
		respondWithJSON(w, http.StatusOK, WebhookResponse{
			Success: true,
			Message: fmt.Sprintf("Event %s carried no repository, ignored", event),
		})
		return
	}

	if err := h.processRepositoryEvent(r.Context(), payload.Repository, payload.Action); err != nil {
		h.logger.Error("Webhook processing failed", "event", event, "repo", payload.Repository.FullName, "error", err)
		respondWithError(w, statusForError(err), "Webhook processing failed", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, WebhookResponse{Success: true, Message: message})
}

func (h *Handler) processRepositoryEvent(ctx context.Context, repo *webhookRepository, action string) error {
	if action == "deleted" {
		_, err := h.orch.DeleteOne(ctx, repo.ID, repo.FullName)
		return err
	}

	owner, name, ok := strings.Cut(repo.FullName, "/")
	if !ok {
		return &apperrors.ValidationError{Message: fmt.Sprintf("malformed repository full name %q", repo.FullName)}
	}

	_, err := h.orch.SyncOne(ctx, owner, name)
	return err
}

// verifySignature checks the HMAC-SHA256 signature over the raw body. With
// no secret configured, verification is skipped; this is a development-mode
// default, not a production stance.
func (h *Handler) verifySignature(body []byte, signature string) bool {
	if h.cfg.WebhookSecret == "" {
		h.logger.Warn("Webhook secret not set, skipping signature verification")
		return true
	}
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.cfg.WebhookSecret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expected))
}

// sendEmail relays a contact-form submission.
// POST /send-email
func (h *Handler) sendEmail(w http.ResponseWriter, r *http.Request) {
	var req SendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON payload", "")
		return
	}

	if req.Name == "" || req.Email == "" || req.Message == "" {
		respondWithError(w, http.StatusBadRequest, "All fields (name, email, message) are required", "")
		return
	}

	if h.mailer == nil {
		respondWithError(w, http.StatusInternalServerError, "Email relay is not configured", "")
		return
	}

	if err := h.mailer.SendContactEmail(r.Context(), req.Name, req.Email, req.Message); err != nil {
		h.logger.Error("Email sending failed", "error", err)
		if h.metrics != nil {
			h.metrics.ContactEmailsTotal.WithLabelValues("failed").Inc()
		}
		respondWithError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}

	if h.metrics != nil {
		h.metrics.ContactEmailsTotal.WithLabelValues("sent").Inc()
	}
	respondWithJSON(w, http.StatusOK, SendEmailResponse{
		Success: true,
		Message: "Email sent successfully! You'll receive a confirmation shortly.",
	})
}

// getSyncLogs returns recent orchestration audit entries.
// GET /sync-logs?limit=N
func (h *Handler) getSyncLogs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultLogLimit)
	if limit <= 0 || limit > maxSyncLogsPerPage {
		limit = defaultLogLimit
	}

	logs, err := h.store.ListSyncLogs(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to fetch sync logs", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch sync logs", err.Error())
		return
	}
	if logs == nil {
		logs = []model.SyncLog{}
	}

	respondWithJSON(w, http.StatusOK, SyncLogsResponse{Success: true, Count: len(logs), Logs: logs})
}

// getRateLimit reports the GitHub API quota for the configured token.
// GET /rate-limit
func (h *Handler) getRateLimit(w http.ResponseWriter, r *http.Request) {
	rl, err := h.rateLimit.CheckRateLimit(r.Context())
	if err != nil {
		h.logger.Error("Failed to check rate limit", "error", err)
		respondWithError(w, statusForError(err), "Failed to check rate limit", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, RateLimitResponse{
		Success:   true,
		Limit:     rl.Limit,
		Remaining: rl.Remaining,
		Reset:     rl.Reset,
	})
}

// statusForError maps the internal error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	var rateLimited *apperrors.RateLimitedError
	if errors.As(err, &rateLimited) {
		return http.StatusTooManyRequests
	}
	var upstream *apperrors.UpstreamError
	if errors.As(err, &upstream) {
		return http.StatusBadGateway
	}
	var validation *apperrors.ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest
	}
	var unauthorized *apperrors.UnauthorizedError
	if errors.As(err, &unauthorized) {
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func secureEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, status int, errMsg, detail string) {
	respondWithJSON(w, status, ErrorResponse{Success: false, Error: errMsg, Message: detail})
}
