package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spigell/freelance-advisor/internal/backend"
	"github.com/spigell/freelance-advisor/internal/logger"
	"github.com/spigell/freelance-advisor/internal/orchestrator"
	"github.com/spigell/freelance-advisor/internal/record"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	maxChatBody = 1 << 20
)

type ChatRequest struct {
	Message string `json:"message" validate:"required"`
	UserID  string `json:"userId" validate:"omitempty,max=128"`
}

type ChatResponse struct {
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

type JobsResponse struct {
	Jobs      []record.Record `json:"jobs"`
	Count     int             `json:"count"`
	Timestamp string          `json:"timestamp"`
	Status    string          `json:"status"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	AgentName string `json:"agent_name"`
	Address   string `json:"address"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		AgentName: s.name,
		Address:   s.cfg.Addr,
		Timestamp: s.timestamp(),
	})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.jobs.GetOrFetch(r.Context(), backend.ResourceJobs)
	if err != nil {
		s.logger.Warn("failed to load jobs",
			zap.String(logger.FieldRequestID, RequestIDFrom(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadGateway, JobsResponse{
			Jobs:      []record.Record{},
			Timestamp: s.timestamp(),
			Status:    fmt.Sprintf("error: %v", err),
		})
		return
	}
	if jobs == nil {
		jobs = []record.Record{}
	}

	writeJSON(w, http.StatusOK, JobsResponse{
		Jobs:      jobs,
		Count:     len(jobs),
		Timestamp: s.timestamp(),
		Status:    statusSuccess,
	})
}

// handleChat answers a chat message. Failures keep the ChatResponse body with
// status "error" and also set the HTTP code: 400 for a bad request, 502 when the
// LLM endpoint failed and 500 otherwise.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := s.logger.With(zap.String(logger.FieldRequestID, RequestIDFrom(r.Context())))

	var req ChatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody))
	if err := dec.Decode(&req); err != nil {
		s.writeChat(w, http.StatusBadRequest, "Invalid request body: "+err.Error(), statusError)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeChat(w, http.StatusBadRequest, "Invalid request: "+validationMessage(err), statusError)
		return
	}

	log.Info("chat request received",
		zap.Bool("authenticated", req.UserID != ""),
		zap.String("message_preview", logger.TruncateForLog(req.Message, 120)),
	)

	answer, err := s.answerer.Process(r.Context(), req.Message, req.UserID)
	if err != nil {
		log.Error("failed to answer chat request", zap.Error(err))
		code := http.StatusInternalServerError
		var upstream *orchestrator.UpstreamError
		if errors.As(err, &upstream) {
			code = http.StatusBadGateway
		}
		s.writeChat(w, code, "An error occurred: "+err.Error(), statusError)
		return
	}

	s.writeChat(w, http.StatusOK, answer, statusSuccess)
}

func (s *Server) writeChat(w http.ResponseWriter, code int, response, status string) {
	writeJSON(w, code, ChatResponse{Response: response, Timestamp: s.timestamp(), Status: status})
}

func (s *Server) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	return fmt.Sprintf("field %s failed on %s", fe.Field(), fe.Tag())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
