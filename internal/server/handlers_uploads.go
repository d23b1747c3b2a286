package server

import (
	"errors"
	"net/http"

	"github.com/bobmcallan/medterms/internal/models"
	"github.com/bobmcallan/medterms/internal/services/upload"
)

// handleUpload handles POST /api/uploads with a multipart "image" field.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	maxBytes := s.app.Config.Server.MaxUploadBytes()
	// Room for the multipart framing around a maximum-size image.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteErrorWithCode(w, http.StatusRequestEntityTooLarge, "Image exceeds the upload size limit.", string(models.KindUpload))
			return
		}
		WriteErrorWithCode(w, http.StatusBadRequest, "No image file received.", string(models.KindUpload))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, "No image file received.", string(models.KindUpload))
		return
	}
	defer file.Close()
	if header.Size > maxBytes {
		WriteErrorWithCode(w, http.StatusRequestEntityTooLarge, "Image exceeds the upload size limit.", string(models.KindUpload))
		return
	}

	url, err := s.app.UploadService.UploadImage(r.Context(), header.Header.Get("Content-Type"), file)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]string{
		"url":      url,
		"markdown": upload.Markdown(url),
	})
}
