package measure

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, apiErr *Error) {
	writeJSON(w, apiErr.Status, apiErr)
}

// handleWelcome serves the API welcome message.
func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Welcome to the Measure API"))
}

// handleUpload registers a new meter reading from a base64 photo.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errInvalidData("request body must be valid JSON"))
		return
	}

	in, apiErr := req.validate()
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}

	result, apiErr := s.service.Upload(r.Context(), in)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleConfirm applies the one-time confirmation of a reading.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errInvalidData("request body must be valid JSON"))
		return
	}

	in, apiErr := req.validate()
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}

	if apiErr := s.service.Confirm(r.Context(), in); apiErr != nil {
		writeError(w, apiErr)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleList returns a customer's readings, optionally filtered by type.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request, customerCode string) {
	typeFilter := r.URL.Query().Get("measure_type")

	result, apiErr := s.service.List(r.Context(), customerCode, typeFilter)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleImage serves a stored meter photo.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("file")
	data, err := s.service.ImageFile(r.Context(), filename)
	if errors.Is(err, ErrFileNotFound) {
		http.Error(w, "Image not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Error reading image", "filename", filename, "error", err)
		writeError(w, errInternal())
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(data)
}
