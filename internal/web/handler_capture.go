package web

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vbonduro/recipecam/internal/service"
	"github.com/vbonduro/recipecam/internal/vision"
)

const maxImageSize = 20 << 20 // 20 MB

// maxRequestSize leaves room for base64 expansion of a data URL upload.
const maxRequestSize = maxImageSize*4/3 + 1<<20

// allowedImageTypes is the set of MIME types accepted for captures.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniffing algorithm (and
// therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

var errBadImage = errors.New("bad image")

// readCapture extracts the image from either a multipart "image" file or an
// "image_data" data URL, as produced by a canvas or webcam screenshot.
func (s *Server) readCapture(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
	if err := r.ParseMultipartForm(maxImageSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, "", fmt.Errorf("%w: failed to parse form", errBadImage)
	}

	var data []byte
	if file, _, err := r.FormFile("image"); err == nil {
		defer closeWithLog(file, "capture file", s.logger)
		data, err = io.ReadAll(io.LimitReader(file, maxImageSize+1))
		if err != nil {
			return nil, "", fmt.Errorf("%w: failed to read file", errBadImage)
		}
	} else if dataURL := r.FormValue("image_data"); dataURL != "" {
		data, err = decodeDataURL(dataURL)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", errBadImage, err)
		}
	} else {
		return nil, "", fmt.Errorf("%w: image required", errBadImage)
	}

	if len(data) > maxImageSize {
		return nil, "", fmt.Errorf("%w: image too large", errBadImage)
	}
	mimeType, ok := allowedImageMIME(data)
	if !ok {
		return nil, "", fmt.Errorf("%w: unsupported image format", errBadImage)
	}
	return data, mimeType, nil
}

// decodeDataURL decodes a base64 "data:<mime>;base64,<payload>" URL.
func decodeDataURL(s string) ([]byte, error) {
	header, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, errors.New("image_data must be a base64 data URL")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return data, nil
}

// statusFor maps a capture error to the HTTP status returned to the page.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, service.ErrUploadFailure), errors.Is(err, service.ErrRequestFailure):
		return http.StatusBadGateway
	case errors.Is(err, vision.ErrMalformedResponse), errors.Is(err, vision.ErrSchemaMismatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// failureView is what the page shows when a cycle does not produce a recipe.
type failureView struct {
	Kind    service.FailureKind `json:"kind"`
	Message string              `json:"message"`
}

func newFailureView(err error) failureView {
	v := failureView{Kind: service.KindOf(err)}
	switch v.Kind {
	case service.FailureUpload:
		v.Message = "The photo could not be uploaded. Try again."
	case service.FailureRequest:
		v.Message = "The recipe reader is unavailable right now. Try again."
	case service.FailureMalformed:
		v.Message = "The recipe reader answered with something that is not a recipe. Try another photo."
	case service.FailureSchema:
		v.Message = "The recipe reader could not find both ingredients and instructions. Try another photo."
	default:
		if errors.Is(err, service.ErrBusy) {
			v.Message = "A photo is already being read. Wait for it to finish."
		} else {
			v.Message = "Something went wrong."
		}
	}
	return v
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	image, mimeType, err := s.readCapture(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := s.service.Capture(r.Context(), image, mimeType, nil)
	if err != nil {
		if c != nil {
			s.logger.Info("capture did not produce a recipe", "cycle_id", c.ID, "failure_kind", c.Failure)
		}
		if rerr := s.renderPartial(w, statusFor(err), "partials/failure.html", "failure", newFailureView(err)); rerr != nil {
			s.logger.Error("render partial failed", "error", rerr)
		}
		return
	}

	if err := s.renderPartial(w, http.StatusOK, "partials/recipe.html", "recipe", newRecipeView(c)); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

// sseWriter emits server-sent events. Headers are written with the first event
// so a request rejected before any event can still get a plain error status.
type sseWriter struct {
	w       http.ResponseWriter
	ctx     context.Context
	started bool
	failed  bool
}

func (e *sseWriter) send(event string, v any) {
	if e.failed || e.ctx.Err() != nil {
		return
	}
	if !e.started {
		h := e.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("X-Accel-Buffering", "no")
		e.started = true
	}

	payload, err := json.Marshal(v)
	if err != nil {
		e.failed = true
		return
	}
	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		e.failed = true
		return
	}
	if f, ok := e.w.(http.Flusher); ok {
		f.Flush()
	}
}

// handleCaptureStream accepts the same form as handleCapture and reports the
// cycle as it runs: a "state" event per transition, then "recipe" or
// "failed", then "done".
func (s *Server) handleCaptureStream(w http.ResponseWriter, r *http.Request) {
	image, mimeType, err := s.readCapture(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	events := &sseWriter{w: w, ctx: r.Context()}
	observe := func(st service.State) {
		events.send("state", map[string]string{"state": string(st)})
	}

	// Use a detached context so the cycle runs to completion even if the
	// client navigates away.
	c, err := s.service.Capture(context.WithoutCancel(r.Context()), image, mimeType, observe)
	if errors.Is(err, service.ErrBusy) && !events.started {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	if err != nil {
		if c != nil {
			s.logger.Info("streamed capture did not produce a recipe", "cycle_id", c.ID, "failure_kind", c.Failure)
		}
		events.send("failed", newFailureView(err))
	} else {
		events.send("recipe", newRecipeView(c))
	}
	events.send("done", struct{}{})
}
