package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"santamoment/internal/quality"
	"santamoment/internal/utils"
)

// UploadResponse reports the stored filename together with the quality gate
// verdict. Degraded means the analyzer could not decode the photo and the
// upload was let through without a gate.
type UploadResponse struct {
	Success  bool            `json:"success"`
	Filename string          `json:"filename,omitempty"`
	Path     string          `json:"path,omitempty"`
	Quality  *quality.Result `json:"quality,omitempty"`
	Degraded bool            `json:"degraded,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// Upload receives the customer photo, runs the quality gate and persists the
// file only when the gate passes (or cannot run at all).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.Config.Upload.MaxSizeBytes)

	file, header, err := r.FormFile("photo")
	if err != nil {
		h.Logger.Warn("UPLOAD", fmt.Sprintf("Missing or oversized photo: %v", err))
		utils.WriteError(w, http.StatusBadRequest, "No photo in request")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.Logger.Error("UPLOAD", fmt.Sprintf("Failed to read photo: %v", err))
		utils.WriteError(w, http.StatusBadRequest, "Could not read photo")
		return
	}

	result, err := h.Analyzer.Analyze(bytes.NewReader(data))
	if err != nil {
		if !errors.Is(err, quality.ErrUndecodable) {
			h.Logger.Error("UPLOAD", fmt.Sprintf("Analyzer error: %v", err))
			utils.WriteError(w, http.StatusInternalServerError, "Photo analysis failed")
			return
		}
		// Analyzer unavailable for this file: degraded pass-through, the
		// funnel proceeds without a gate.
		h.Logger.Warn("UPLOAD", fmt.Sprintf("Photo not decodable, passing through ungated: %v", err))
		filename, saveErr := h.savePhoto(data, header.Filename)
		if saveErr != nil {
			h.Logger.Error("UPLOAD", fmt.Sprintf("Failed to save photo: %v", saveErr))
			utils.WriteError(w, http.StatusInternalServerError, "Could not store photo")
			return
		}
		utils.WriteJSON(w, http.StatusOK, UploadResponse{
			Success:  true,
			Filename: filename,
			Path:     "/uploads/" + filename,
			Degraded: true,
		})
		return
	}

	if !result.Pass {
		h.Logger.Info("UPLOAD", fmt.Sprintf("Quality gate failed (score %d): %s", result.Score, result.Message))
		utils.WriteJSON(w, http.StatusOK, UploadResponse{
			Success: false,
			Quality: result,
			Message: result.Message,
		})
		return
	}

	filename, err := h.savePhoto(data, header.Filename)
	if err != nil {
		h.Logger.Error("UPLOAD", fmt.Sprintf("Failed to save photo: %v", err))
		utils.WriteError(w, http.StatusInternalServerError, "Could not store photo")
		return
	}

	h.Logger.Info("UPLOAD", fmt.Sprintf("Stored %s (score %d)", filename, result.Score))
	utils.WriteJSON(w, http.StatusOK, UploadResponse{
		Success:  true,
		Filename: filename,
		Path:     "/uploads/" + filename,
		Quality:  result,
	})
}

func (h *Handler) savePhoto(data []byte, originalName string) (string, error) {
	if err := os.MkdirAll(h.Config.Upload.Dir, 0755); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
		ext = ".jpg"
	}
	filename := uuid.NewString() + ext

	if err := os.WriteFile(filepath.Join(h.Config.Upload.Dir, filename), data, 0644); err != nil {
		return "", err
	}
	return filename, nil
}
