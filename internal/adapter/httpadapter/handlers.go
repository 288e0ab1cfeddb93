package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/couchcryptid/storm-windspeed-predictor/internal/domain"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 8 << 20
)

type batchRequest struct {
	Readings []domain.Reading `json:"readings"`
}

type batchResponse struct {
	Predictions []domain.PredictionResult `json:"predictions"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

func (s *Server) handleModel(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.summary)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var reading domain.Reading
	if !s.decode(w, r, &reading) {
		return
	}
	if reading == nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("request body must be a reading object"))
		return
	}

	result, err := s.predictor.Predict(reading)
	if err != nil {
		s.writePredictError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Readings == nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New(`request body must contain a "readings" array`))
		return
	}

	results, err := s.predictor.PredictBatch(req.Readings)
	if err != nil {
		s.writePredictError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Predictions: results})
}

// decode reads a JSON body into v, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return false
	}
	return true
}

func (s *Server) writePredictError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrShapeMismatch) || errors.Is(err, domain.ErrCorruptArtifact) {
		status = http.StatusUnprocessableEntity
	}
	s.writeError(w, r, status, err)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	id := w.Header().Get(requestIDHeader)
	s.logger.Warn("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"request_id", id,
		"error", err,
	)
	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: id})
}

// requestID echoes the caller's X-Request-ID or mints a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response body
}
