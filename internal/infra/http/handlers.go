package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"feedback-analysis-service/internal/domain"
	"feedback-analysis-service/internal/domain/model"
	"feedback-analysis-service/internal/infra/logging"
	red "feedback-analysis-service/internal/infra/redis"
)

// Minutes of estimated wait per queued job, used in the submission message.
const waitPerQueuedJob = 5

type analyzeRequest struct {
	EventName      string `json:"event_name"`
	WorksheetURL   string `json:"worksheet_url"`
	RecipientEmail string `json:"recipient_email"`
}

type analyzeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	TaskID  string `json:"task_id"`
}

type sessionStartRequest struct {
	SessionID   string `json:"session_id"`
	SheetURL    string `json:"sheet_url"`
	Description string `json:"description"`
	UseGraph    *bool  `json:"use_graph,omitempty"`
}

type sessionQueryRequest struct {
	Question        string `json:"question"`
	UseHybridSearch *bool  `json:"use_hybrid_search,omitempty"`
}

type sessionQueryResponse struct {
	SessionID   string `json:"session_id"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	UsedTool    string `json:"used_tool"`
	SourceCount int    `json:"source_count"`
	Timestamp   string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "feedback-analysis",
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.EventName == "" || req.WorksheetURL == "" || req.RecipientEmail == "" {
		writeError(w, http.StatusBadRequest, "event_name, worksheet_url and recipient_email are required")
		return
	}

	if !s.allowSubmission(r, req.RecipientEmail) {
		writeError(w, http.StatusTooManyRequests, "submission rate limit exceeded, try again later")
		return
	}

	info := s.queue.Info()
	id, err := s.queue.Submit(model.AnalysisRequest{
		EventName:      req.EventName,
		WorksheetURL:   req.WorksheetURL,
		RecipientEmail: req.RecipientEmail,
	})
	if err != nil {
		if errors.Is(err, domain.ErrQueueSaturated) {
			writeError(w, http.StatusServiceUnavailable, "queue is full, try again later")
			return
		}
		s.log.Error().Err(err).Msg("job submission failed")
		writeError(w, http.StatusInternalServerError, "could not queue analysis")
		return
	}

	estimatedWait := info.QueuedTasks * waitPerQueuedJob
	writeJSON(w, http.StatusAccepted, analyzeResponse{
		Status: "accepted",
		Message: fmt.Sprintf(
			"Analysis queued. Current position: %d. Estimated wait: %d minutes. You will receive an email when complete.",
			info.QueuedTasks+1, estimatedWait),
		TaskID: id,
	})
}

func (s *Server) handleAnalyzeStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.queue.GetStatus(id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "status lookup failed")
		return
	}

	resp := map[string]any{
		"task_id":    job.ID,
		"event_name": job.Request.EventName,
		"status":     string(job.Status),
		"created_at": job.CreatedAt.Format(time.RFC3339),
	}
	if job.StartedAt != nil {
		resp["started_at"] = job.StartedAt.Format(time.RFC3339)
	}
	if job.CompletedAt != nil {
		resp["completed_at"] = job.CompletedAt.Format(time.RFC3339)
	}
	if job.LastError != "" {
		resp["error"] = job.LastError
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQueueInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queue.Info())
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req sessionStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	useGraph := true
	if req.UseGraph != nil {
		useGraph = *req.UseGraph
	}

	ctx := logging.WithSessID(r.Context(), req.SessionID)
	session, err := s.sessionUC.Initialize(ctx, req.SessionID, req.SheetURL, req.Description, useGraph)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrEmptyDataset):
			writeError(w, http.StatusUnprocessableEntity, "worksheet contains no data rows")
		default:
			s.log.Error().Err(err).Str("session_id", req.SessionID).Msg("session initialization failed")
			writeError(w, http.StatusBadGateway, "could not initialize session from worksheet")
		}
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleSessionQuery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req sessionQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	useHybrid := true
	if req.UseHybridSearch != nil {
		useHybrid = *req.UseHybridSearch
	}

	ctx := logging.WithSessID(r.Context(), id)
	result, err := s.sessionUC.Query(ctx, id, req.Question, useHybrid)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "session not found or expired")
		case errors.Is(err, domain.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.log.Error().Err(err).Str("session_id", id).Msg("session query failed")
			writeError(w, http.StatusBadGateway, "query could not be answered")
		}
		return
	}

	writeJSON(w, http.StatusOK, sessionQueryResponse{
		SessionID:   id,
		Question:    req.Question,
		Answer:      result.Answer,
		UsedTool:    result.UsedTool,
		SourceCount: result.SourceCount,
		Timestamp:   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessionUC.Delete(logging.WithSessID(r.Context(), id), id); err != nil {
		s.log.Warn().Err(err).Str("session_id", id).Msg("session delete failed")
		writeError(w, http.StatusInternalServerError, "could not delete session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id, "status": "deleted"})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessionUC.Stats(r.Context()))
}

// allowSubmission applies the Redis fixed-window limiter keyed by recipient.
// With no limiter configured, or Redis down, submissions pass.
func (s *Server) allowSubmission(r *http.Request, recipient string) bool {
	if s.limiter == nil || s.cfg.Queue.RateLimit <= 0 {
		return true
	}
	key := red.SubmitKey(strings.ToLower(strings.TrimSpace(recipient)))
	ok, err := s.limiter.Allow(r.Context(), key, s.cfg.Queue.RateLimit, s.cfg.Queue.RateWindow)
	if err != nil {
		s.log.Warn().Err(err).Msg("rate limiter unavailable, allowing submission")
	}
	return ok
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
