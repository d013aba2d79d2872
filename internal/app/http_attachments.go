package app

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"notespace/api/internal/storage"
)

// multipart parts above this size spill to temp files
const multipartMemory = 8 << 20

func (s *HTTPServer) handleListAttachments(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListAttachments(r.Context(), sessionFrom(r).UserID, r.URL.Query().Get("pageId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": listPayload(items, attachmentPayload)})
}

func (s *HTTPServer) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) || errors.Is(err, multipart.ErrMessageTooLarge) {
			s.fail(w, r, storage.ErrTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "multipart form with a file field is required", nil)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "file is required", nil)
		return
	}
	defer file.Close()

	pageID := r.FormValue("pageId")
	if pageID == "" {
		pageID = r.URL.Query().Get("pageId")
	}
	attachment, err := s.service.UploadAttachment(r.Context(), sessionFrom(r).UserID, pageID, header.Filename, file)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, attachmentPayload(attachment))
}

func (s *HTTPServer) handleDownloadAttachment(w http.ResponseWriter, r *http.Request) {
	download, err := s.service.OpenAttachment(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer download.Body.Close()

	a := download.Attachment
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.OriginalName))
	w.Header().Set("Content-Length", strconv.FormatInt(a.SizeBytes, 10))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, download.Body); err != nil {
		s.logger.Warn().Err(err).Str("attachment_id", a.ID).Msg("attachment stream interrupted")
	}
}

func (s *HTTPServer) handleDeleteAttachment(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteAttachment(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
