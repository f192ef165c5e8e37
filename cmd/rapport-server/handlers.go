package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"rapport/internal/analysis"
	"rapport/internal/domain"
	"rapport/internal/emotion"
	"rapport/internal/explain"
	"rapport/internal/orchestrator"
)

type server struct {
	classifier *emotion.Classifier
	explainer  *explain.Explainer
	pipeline   *analysis.Pipeline
	svc        *orchestrator.Service
	maxBody    int64
	logger     *slog.Logger
}

type textRequest struct {
	Text string `json:"text"`
}

type messageRequest struct {
	MessageID string `json:"message_id,omitempty"`
	SenderID  string `json:"sender_id"`
	Text      string `json:"text"`
	TS        string `json:"ts,omitempty"`
}

type scoreRequest struct {
	SenderID   string  `json:"sender_id"`
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

type explainResponse struct {
	Label       emotion.Category `json:"label"`
	Confidence  float64          `json:"confidence"`
	Explanation string           `json:"explanation"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/lexicon", s.handleLexicon)
		r.Post("/classify", s.handleClassify)
		r.Post("/explain", s.handleExplain)
		r.Post("/analyze", s.handleAnalyze)

		r.Route("/conversations/{conversationID}", func(r chi.Router) {
			r.Post("/messages", s.handleMessage)
			r.Post("/scores", s.handleScoreUpdate)
			r.Get("/score", s.handleScoreGet)
			r.Post("/reset", s.handleReset)
			r.Delete("/", s.handleEvict)
			r.Get("/statistics", s.handleStatistics)
		})
	})
	return r
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"request_id", chimw.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"latency_ms", roundMillis(time.Since(start)),
		)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"engine":  s.classifier.Version(),
		"backend": s.pipeline.BackendName(),
	})
}

func (s *server) handleLexicon(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.classifier.Lexicon())
}

func (s *server) handleClassify(w http.ResponseWriter, req *http.Request) {
	var in textRequest
	if err := decodeJSONBody(req, s.maxBody, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.classifier.Classify(in.Text))
}

func (s *server) handleExplain(w http.ResponseWriter, req *http.Request) {
	var in textRequest
	if err := decodeJSONBody(req, s.maxBody, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result := s.classifier.Classify(in.Text)
	writeJSON(w, http.StatusOK, explainResponse{
		Label:       result.Label,
		Confidence:  result.Confidence,
		Explanation: s.explainer.Explain(in.Text, &result),
	})
}

func (s *server) handleAnalyze(w http.ResponseWriter, req *http.Request) {
	var in textRequest
	if err := decodeJSONBody(req, s.maxBody, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.pipeline.Analyze(req.Context(), in.Text))
}

func (s *server) handleMessage(w http.ResponseWriter, req *http.Request) {
	var in messageRequest
	if err := decodeJSONBody(req, s.maxBody, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	out, err := s.svc.HandleMessage(req.Context(), domain.MessageInput{
		ConversationID: chi.URLParam(req, "conversationID"),
		MessageID:      in.MessageID,
		SenderID:       in.SenderID,
		Text:           in.Text,
		TS:             in.TS,
	})
	if errors.Is(err, orchestrator.ErrConversationRequired) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		s.logger.Error("handle message failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleScoreUpdate(w http.ResponseWriter, req *http.Request) {
	var in scoreRequest
	if err := decodeJSONBody(req, s.maxBody, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	c, ok := emotion.ParseCategory(in.Emotion)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown emotion: %q", in.Emotion))
		return
	}
	id := chi.URLParam(req, "conversationID")
	writeJSON(w, http.StatusOK, s.svc.RecordScore(req.Context(), id, in.SenderID, c, in.Confidence))
}

func (s *server) handleScoreGet(w http.ResponseWriter, req *http.Request) {
	snap, ok := s.svc.Engine().Get(chi.URLParam(req, "conversationID"))
	if !ok {
		writeError(w, http.StatusNotFound, errConversationNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *server) handleReset(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Reset(req.Context(), chi.URLParam(req, "conversationID")))
}

func (s *server) handleEvict(w http.ResponseWriter, req *http.Request) {
	if !s.svc.Evict(req.Context(), chi.URLParam(req, "conversationID")) {
		writeError(w, http.StatusNotFound, errConversationNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleStatistics(w http.ResponseWriter, req *http.Request) {
	stats, ok := s.svc.Engine().Statistics(chi.URLParam(req, "conversationID"))
	if !ok {
		writeError(w, http.StatusNotFound, errConversationNotFound)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

var errConversationNotFound = errors.New("conversation not found")

func decodeJSONBody(req *http.Request, maxBytes int64, out any) error {
	defer req.Body.Close()
	data, err := io.ReadAll(io.LimitReader(req.Body, maxBytes+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return fmt.Errorf("request body too large")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("request body is empty")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		if err == nil {
			return fmt.Errorf("invalid json: multiple JSON values")
		}
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func roundMillis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(err.Error())})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
