package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/postcraft/internal/business"
	"github.com/jonathan/postcraft/internal/db"
	"github.com/jonathan/postcraft/internal/ingestion"
	"github.com/jonathan/postcraft/internal/pipeline"
	"github.com/jonathan/postcraft/internal/types"
)

// maxBodyBytes bounds request bodies; uploaded files arrive base64-encoded inline.
const maxBodyBytes = 64 << 20

// FilePayload is an uploaded file. Data is base64 in JSON.
type FilePayload struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data"`
}

// InputsPayload carries the raw business material.
type InputsPayload struct {
	URLs  []string      `json:"urls,omitempty"`
	Text  string        `json:"text,omitempty"`
	Files []FilePayload `json:"files,omitempty"`
}

// GenerateRequest represents the request body for /v1/generate
type GenerateRequest struct {
	Inputs     InputsPayload `json:"inputs"`
	PostType   string        `json:"post_type"`
	Count      int           `json:"count"`
	Creativity int           `json:"creativity,omitempty"`
	MediaStyle string        `json:"media_style,omitempty"`
	ProductURL string        `json:"product_url,omitempty"`
	Platforms  []string      `json:"platforms,omitempty"`
}

// ContextRequest represents the request body for /v1/context
type ContextRequest struct {
	Inputs InputsPayload `json:"inputs"`
}

// RunStatusResponse represents the response for /v1/runs/{id}
type RunStatusResponse struct {
	RunID  string                `json:"run_id"`
	State  types.PipelineState   `json:"state"`
	Status *pipeline.Snapshot    `json:"status,omitempty"`
	Result *types.PipelineResult `json:"result,omitempty"`
}

func (in InputsPayload) toInputs() (business.Inputs, error) {
	out := business.Inputs{URLs: in.URLs, Text: in.Text}
	for i, f := range in.Files {
		if strings.TrimSpace(f.Name) == "" {
			return out, &ErrValidation{Field: fmt.Sprintf("inputs.files[%d].name", i), Message: "is required"}
		}
		if len(f.Data) == 0 {
			return out, &ErrValidation{Field: fmt.Sprintf("inputs.files[%d].data", i), Message: "is empty"}
		}
		out.Files = append(out.Files, ingestion.File{Name: f.Name, MIMEType: f.MIMEType, Data: f.Data})
	}
	if out.Empty() {
		return out, &ErrValidation{Field: "inputs", Message: "provide at least one URL, file or description"}
	}
	return out, nil
}

func (req GenerateRequest) toPipelineRequest() (pipeline.Request, error) {
	postType, err := types.ParsePostType(req.PostType)
	if err != nil {
		return pipeline.Request{}, &ErrValidation{Field: "post_type", Message: err.Error()}
	}
	inputs, err := req.Inputs.toInputs()
	if err != nil {
		return pipeline.Request{}, err
	}
	return pipeline.Request{
		Inputs:     inputs,
		PostType:   postType,
		Count:      req.Count,
		Creativity: req.Creativity,
		MediaStyle: req.MediaStyle,
		ProductURL: req.ProductURL,
		Platforms:  req.Platforms,
	}, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid request body: " + err.Error()}
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("request failed")
	}
	s.errorResponse(w, status, err.Error())
}

// handleGenerate runs the pipeline and returns the complete result
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body GenerateRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	req, err := body.toPipelineRequest()
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.pipeline.Run(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleGenerateStream runs the pipeline and streams progress as server-sent events,
// ending with a result event (or an error event) and a complete event.
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	var body GenerateRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	req, err := body.toPipelineRequest()
	if err != nil {
		s.writeError(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	runID := ""
	req.OnProgress = func(event pipeline.ProgressEvent) {
		runID = event.RunID
		if err := sse.WriteEvent("progress", event); err != nil {
			s.logger.WithError(err).Debug("client went away during stream")
		}
	}

	result, err := s.pipeline.Run(r.Context(), req)
	if err != nil {
		sse.WriteError(HTTPStatus(err), err.Error())
		sse.WriteComplete(runID, string(types.StateFailed))
		return
	}
	if err := sse.WriteEvent("result", result); err != nil {
		s.logger.WithError(err).Warn("failed to stream result")
	}
	sse.WriteComplete(result.Metadata.RunID, string(result.Metadata.FinalState))
}

// handleContext builds and returns only the business context
func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	var body ContextRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	inputs, err := body.Inputs.toInputs()
	if err != nil {
		s.writeError(w, err)
		return
	}

	bc, err := s.contexts.Build(r.Context(), inputs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, bc)
}

// handleRunStatus returns the live status of a recent run, or the stored result of
// an older one when persistence is configured.
func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	runID, err := uuid.Parse(idStr)
	if err != nil {
		s.writeError(w, &ErrValidation{Field: "id", Message: "must be a UUID"})
		return
	}

	if snap, ok := s.pipeline.Status(runID.String()); ok {
		s.jsonResponse(w, http.StatusOK, RunStatusResponse{RunID: snap.RunID, State: snap.State, Status: &snap})
		return
	}

	if s.results != nil {
		result, err := s.results.GetResult(r.Context(), runID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if result != nil {
			s.jsonResponse(w, http.StatusOK, RunStatusResponse{
				RunID:  result.Metadata.RunID,
				State:  result.Metadata.FinalState,
				Result: result,
			})
			return
		}
	}

	s.writeError(w, fmt.Errorf("run %s: %w", runID, ErrNotFound))
}


// parseQueryInt parses an integer query parameter with default and max values
func parseQueryInt(r *http.Request, key string, defaultValue, maxValue int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		return defaultValue
	}
	if maxValue > 0 && val > maxValue {
		return maxValue
	}
	return val
}

// handleListRuns lists persisted runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filters := db.RunFilters{
		Company:  strings.TrimSpace(r.URL.Query().Get("company")),
		PostType: strings.TrimSpace(r.URL.Query().Get("post_type")),
		Limit:    parseQueryInt(r, "limit", 50, 200),
	}
	if filters.PostType != "" {
		if _, err := types.ParsePostType(filters.PostType); err != nil {
			s.writeError(w, &ErrValidation{Field: "post_type", Message: err.Error()})
			return
		}
	}

	runs, err := s.results.ListRuns(r.Context(), filters)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
		"limit": filters.Limit,
	})
}

// handleDeleteRun removes a persisted run and its result.
func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, &ErrValidation{Field: "id", Message: "must be a UUID"})
		return
	}
	if err := s.results.DeleteRun(r.Context(), runID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
