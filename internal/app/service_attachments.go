package app

import (
	"bytes"
	"context"
	"io"
	"strings"

	"notespace/api/internal/obs"
	"notespace/api/internal/rbac"
	"notespace/api/internal/storage"
	"notespace/api/internal/store"
	"notespace/api/internal/util"
)

// Download is an attachment body ready to stream. The caller closes Body.
type Download struct {
	Attachment store.Attachment
	Body       io.ReadCloser
}

// UploadAttachment stores a file for a page the caller can edit.
func (s *Service) UploadAttachment(ctx context.Context, actorID, pageID, filename string, body io.Reader) (store.Attachment, error) {
	if strings.TrimSpace(pageID) == "" {
		return store.Attachment{}, badRequest("VALIDATION_ERROR", "pageId is required")
	}
	if _, err := s.pageAccess(ctx, pageID, actorID, rbac.AccessEdit); err != nil {
		return store.Attachment{}, err
	}
	upload, err := storage.ReadUpload(body, filename)
	if err != nil {
		return store.Attachment{}, err
	}
	size := int64(len(upload.Data))
	if err := s.objects.Put(ctx, upload.StoredName, bytes.NewReader(upload.Data), size, upload.ContentType); err != nil {
		return store.Attachment{}, err
	}

	attachment := store.Attachment{
		ID:           util.NewUUID(),
		PageID:       pageID,
		UploadedBy:   actorID,
		OriginalName: upload.OriginalName,
		StoredName:   upload.StoredName,
		ContentType:  upload.ContentType,
		SizeBytes:    size,
	}
	if err := s.store.CreateAttachment(ctx, attachment); err != nil {
		_ = s.objects.Delete(ctx, upload.StoredName)
		return store.Attachment{}, err
	}
	obs.RecordEvent("attachment_uploaded")
	return s.store.GetAttachment(ctx, attachment.ID)
}

func (s *Service) ListAttachments(ctx context.Context, actorID, pageID string) ([]store.Attachment, error) {
	if strings.TrimSpace(pageID) == "" {
		return nil, badRequest("VALIDATION_ERROR", "pageId is required")
	}
	if _, err := s.pageAccess(ctx, pageID, actorID, rbac.AccessRead); err != nil {
		return nil, err
	}
	return s.store.ListAttachments(ctx, pageID)
}

func (s *Service) OpenAttachment(ctx context.Context, actorID, attachmentID string) (Download, error) {
	attachment, err := s.attachmentAccess(ctx, actorID, attachmentID, rbac.AccessRead)
	if err != nil {
		return Download{}, err
	}
	body, err := s.objects.Open(ctx, attachment.StoredName)
	if err != nil {
		return Download{}, err
	}
	return Download{Attachment: attachment, Body: body}, nil
}

func (s *Service) DeleteAttachment(ctx context.Context, actorID, attachmentID string) error {
	attachment, err := s.attachmentAccess(ctx, actorID, attachmentID, rbac.AccessEdit)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAttachment(ctx, attachmentID); err != nil {
		return err
	}
	s.removeObjects([]store.Attachment{attachment})
	return nil
}

func (s *Service) attachmentAccess(ctx context.Context, actorID, attachmentID string, level rbac.AccessLevel) (store.Attachment, error) {
	attachment, err := s.store.GetAttachment(ctx, attachmentID)
	if err != nil {
		return store.Attachment{}, missing(err, "attachment not found")
	}
	if _, err := s.pageAccess(ctx, attachment.PageID, actorID, level); err != nil {
		return store.Attachment{}, err
	}
	return attachment, nil
}

func (s *Service) removeObjects(attachments []store.Attachment) {
	if len(attachments) == 0 || s.objects == nil {
		return
	}
	s.background("attachment_remove", func() error {
		for _, a := range attachments {
			if err := s.objects.Delete(context.Background(), a.StoredName); err != nil {
				return err
			}
		}
		return nil
	})
}
