package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/circlepack/pkg/buildinfo"
	perrors "github.com/matzehuels/circlepack/pkg/errors"
	"github.com/matzehuels/circlepack/pkg/pack"
	"github.com/matzehuels/circlepack/pkg/pipeline"
)

// packRequest is the body of POST /v1/pack. Image paths are not accepted;
// a source image is sent inline as base64.
type packRequest struct {
	pipeline.Options

	ImageBase64 string `json:"image_data,omitempty"`
	Format      string `json:"format,omitempty"`
}

var contentTypes = map[string]string{
	pipeline.FormatSVG:  "image/svg+xml",
	pipeline.FormatJSON: "application/json",
	pipeline.FormatPNG:  "image/png",
	pipeline.FormatPDF:  "application/pdf",
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *Server) handlePack(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	var req packRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "decode request"))
		return
	}

	opts, format, err := s.buildOptions(r, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", contentTypes[format])
	h.Set("X-Run-ID", res.ID)
	h.Set("X-Circlepack-Seed", strconv.FormatUint(res.Seed, 10))
	h.Set("X-Circlepack-Circles", strconv.Itoa(res.Stats.Circles))
	h.Set("X-Cache", cacheStatus(res.CacheInfo.PackHit))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Artifacts[format])
}

// buildOptions turns a request into pipeline options and picks the single
// response format.
func (s *Server) buildOptions(r *http.Request, req packRequest) (pipeline.Options, string, error) {
	opts := req.Options
	opts.Image = ""
	opts.Logger = s.logger.With("request_id", middleware.GetReqID(r.Context()))

	if req.ImageBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			return opts, "", perrors.Wrap(perrors.ErrCodeImageDecode, err, "image_data is not valid base64")
		}
		opts.ImageData = data
	}

	format := negotiateFormat(r, req)
	if err := pipeline.ValidateFormat(format); err != nil {
		return opts, "", err
	}
	opts.Formats = []string{format}

	if err := opts.ValidateAndSetDefaults(); err != nil {
		return opts, "", err
	}
	if n := pack.TotalAttempts(opts.Passes); s.maxAttempts > 0 && n > s.maxAttempts {
		return opts, "", perrors.New(perrors.ErrCodeInvalidPasses,
			"schedule makes %d attempts, this server allows at most %d", n, s.maxAttempts)
	}
	return opts, format, nil
}

// negotiateFormat picks the response format from the request body, the
// format query parameter, or the Accept header, in that order.
func negotiateFormat(r *http.Request, req packRequest) string {
	if req.Format != "" {
		return req.Format
	}
	if len(req.Formats) == 1 {
		return req.Formats[0]
	}
	if f := r.URL.Query().Get("format"); f != "" {
		return f
	}
	accept := r.Header.Get("Accept")
	for _, format := range []string{pipeline.FormatJSON, pipeline.FormatPNG, pipeline.FormatPDF} {
		if strings.Contains(accept, contentTypes[format]) {
			return format
		}
	}
	return pipeline.FormatSVG
}

func cacheStatus(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code := string(perrors.GetCode(err))
	if code == "" {
		code = string(perrors.ErrCodeInternal)
	}

	msg := perrors.UserMessage(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "request_id", middleware.GetReqID(r.Context()), "error", err)
		msg = "internal error"
	}

	writeJSON(w, status, errorBody{Error: errorDetail{
		Code:      code,
		Message:   msg,
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case perrors.IsValidation(err):
		return http.StatusBadRequest
	case perrors.Is(err, perrors.ErrCodeUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return 499 // client closed request
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
