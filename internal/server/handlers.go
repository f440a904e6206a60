package server

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"skillpick/internal/errors"
	"skillpick/internal/evaluation"
	"skillpick/internal/process"
	"skillpick/internal/resume"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) createProcessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.startSpan(r, "api.create_process")
	defer span.End()

	var in process.CreateProcessInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeBadRequest(w, span, err)
		return
	}
	span.SetAttributes(
		attribute.Int("request.description_length", len(in.Description)),
		attribute.Int("request.num_mcq", in.NumMCQ),
		attribute.Int("request.num_coding", in.NumCoding),
		attribute.Int("request.num_theory", in.NumTheory),
	)

	created, err := s.pipeline.CreateProcess(ctx, in)
	if err != nil {
		s.fail(w, r, span, err)
		return
	}
	span.SetAttributes(attribute.String("process.id", created.ID))
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getProcessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.startSpan(r, "api.get_process")
	defer span.End()

	found, err := s.pipeline.GetProcess(ctx, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, span, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) publicViewHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.startSpan(r, "api.public_view")
	defer span.End()

	view, err := s.pipeline.GetPublicView(ctx, r.PathValue("token"))
	if err != nil {
		s.fail(w, r, span, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.startSpan(r, "api.register")
	defer span.End()

	if err := r.ParseMultipartForm(s.MaxUploadBytes); err != nil {
		s.writeBadRequest(w, span, err)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("resume")
	if err != nil {
		if stderrors.Is(err, http.ErrMissingFile) {
			s.fail(w, r, span, errors.NewValidationError(errors.ErrCodeInvalidRequest, "Resume file is required", nil))
			return
		}
		s.writeBadRequest(w, span, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeBadRequest(w, span, err)
		return
	}
	span.SetAttributes(
		attribute.String("resume.content_type", header.Header.Get("Content-Type")),
		attribute.Int("resume.size", len(data)),
	)

	result, err := s.pipeline.Register(ctx, r.PathValue("token"),
		r.FormValue("name"), r.FormValue("email"),
		resume.File{Name: header.Filename, ContentType: header.Header.Get("Content-Type"), Data: data})
	if err != nil {
		s.fail(w, r, span, err)
		return
	}
	span.SetAttributes(
		attribute.String("registration.status", result.Status),
		attribute.Float64("resume.match_score", result.ResumeMatchScore),
	)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) submitHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.startSpan(r, "api.submit")
	defer span.End()

	var in evaluation.SubmissionInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeBadRequest(w, span, err)
		return
	}
	candidateID := r.PathValue("candidate_id")
	span.SetAttributes(attribute.String("candidate.id", candidateID))

	scorecard, err := s.pipeline.Submit(ctx, candidateID, in)
	if err != nil {
		s.fail(w, r, span, err)
		return
	}
	span.SetAttributes(
		attribute.Float64("score.overall", scorecard.OverallScore),
		attribute.String("score.verdict", string(scorecard.FinalVerdict)),
	)
	writeJSON(w, http.StatusOK, scorecard)
}

func (s *Server) resultHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.startSpan(r, "api.result")
	defer span.End()

	scorecard, err := s.pipeline.Result(ctx, r.PathValue("candidate_id"))
	if err != nil {
		s.fail(w, r, span, err)
		return
	}
	writeJSON(w, http.StatusOK, scorecard)
}

func (s *Server) analyticsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.startSpan(r, "api.analytics")
	defer span.End()

	stats, err := s.pipeline.Analytics(ctx, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, span, err)
		return
	}
	span.SetAttributes(attribute.Int("analytics.candidates", len(stats.Candidates)))
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.startSpan(r, "api.export")
	defer span.End()

	processID := r.PathValue("id")
	// Buffer the workbook so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := s.pipeline.ExportXLSX(ctx, processID, &buf); err != nil {
		s.fail(w, r, span, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="process-%s.xlsx"`, processID))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.LogError(err, "Failed to write export", "process_id", processID)
	}
}

// healthHandler reports service and oracle status
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "skillpick",
		"version": s.Version,
	}
	status := http.StatusOK

	if s.oracle != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		info := s.oracle.GetModelInfo(ctx)
		response["oracle"] = info
		response["circuit_breakers"] = s.oracle.CircuitBreakerStats()
		if info == nil || !info.Available {
			response["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	}

	writeJSON(w, status, response)
}

// startSpan opens a span for an API operation
func (s *Server) startSpan(r *http.Request, name string) (context.Context, oteltrace.Span) {
	if s.observability == nil {
		return noop.NewTracerProvider().Tracer("skillpick.api").Start(r.Context(), name)
	}
	return s.observability.Tracer("skillpick.api").Start(r.Context(), name)
}

// fail records err on the span and writes it as an error reply
func (s *Server) fail(w http.ResponseWriter, r *http.Request, span oteltrace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, errors.Detail(err))
	span.SetAttributes(attribute.String("error.type", string(errors.TypeOf(err))))
	s.writeError(w, r, err)
}

// writeBadRequest reports a body that could not be decoded
func (s *Server) writeBadRequest(w http.ResponseWriter, span oteltrace.Span, err error) {
	span.RecordError(err)
	span.SetAttributes(attribute.String("error.type", "bad_request"))

	var maxBytesErr *http.MaxBytesError
	if stderrors.As(err, &maxBytesErr) {
		writeDetail(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Request body too large (limit is %d bytes)", maxBytesErr.Limit))
		return
	}
	writeDetail(w, http.StatusBadRequest, "Malformed request body")
}

// writeError maps err onto a status code and a {"detail"} body
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.LogError(err, "Request failed", "method", r.Method, "path", r.URL.Path, "status", status)
	} else {
		s.logger.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err.Error())
	}
	writeDetail(w, status, errors.Detail(err))
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON parses a JSON request body into v
func decodeJSON(r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return fmt.Errorf("content-type must be application/json, got %q", ct)
		}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}
