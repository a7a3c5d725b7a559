package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/vendora/vendora-backend/internal/audit"
	"github.com/vendora/vendora-backend/internal/database"
	"github.com/vendora/vendora-backend/internal/image"
	"github.com/vendora/vendora-backend/internal/rbac"
)

const (
	presignTTL      = 15 * time.Minute
	multipartMemory = 2 << 20
)

func mediaKeys(id uuid.UUID, ext string) (original, thumbnail string) {
	return "media/" + id.String() + "/original" + ext, "media/" + id.String() + "/thumb.jpg"
}

func (s *Server) UploadMedia(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, rbac.ResourceMedia, rbac.ActionCreate, false)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, image.MaxFileSize+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, ValidationErr("File too large", []ErrorDetail{{Field: "file", Message: image.ErrTooLarge.Error()}}))
			return
		}
		writeError(w, ValidationErr("Expected a multipart form", nil))
		return
	}
	defer r.MultipartForm.RemoveAll()

	var productID *uuid.UUID
	if raw := r.FormValue("product_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, ValidationErr("Invalid product_id", []ErrorDetail{{Field: "product_id", Message: "must be a UUID"}}))
			return
		}
		if _, err := s.db.Queries().GetProductByID(r.Context(), id); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, NotFound("Product"))
				return
			}
			internalError(w, r, "Failed to load product", err)
			return
		}
		productID = &id
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, ValidationErr("File is required", []ErrorDetail{{Field: "file", Message: "is required"}}))
		return
	}
	defer file.Close()

	img, err := image.Process(file)
	switch {
	case errors.Is(err, image.ErrTooLarge), errors.Is(err, image.ErrUnsupportedType),
		errors.Is(err, image.ErrTooManyPixels), errors.Is(err, image.ErrUnreadable):
		writeError(w, ValidationErr("Invalid image", []ErrorDetail{{Field: "file", Message: err.Error()}}))
		return
	case err != nil:
		internalError(w, r, "Failed to process image", err)
		return
	}

	id := uuid.New()
	originalKey, thumbKey := mediaKeys(id, img.Extension())
	if err := s.media.PutObject(r.Context(), originalKey, bytes.NewReader(img.Original), img.ContentType); err != nil {
		internalError(w, r, "Failed to store image", err)
		return
	}
	if err := s.media.PutObject(r.Context(), thumbKey, bytes.NewReader(img.Thumbnail), "image/jpeg"); err != nil {
		s.removeObjects(r, originalKey)
		internalError(w, r, "Failed to store thumbnail", err)
		return
	}

	var m database.Media
	err = s.db.InTx(r.Context(), func(q *database.Queries) error {
		var err error
		m, err = q.CreateMedia(r.Context(), database.Media{
			ID:           id,
			ProductID:    productID,
			S3Key:        originalKey,
			ThumbnailKey: thumbKey,
			ContentType:  img.ContentType,
			Width:        int32(img.Width),
			Height:       int32(img.Height),
			UploadedBy:   &user.ID,
		})
		if err != nil {
			return err
		}
		return s.audit.Record(r.Context(), q, audit.Entry{
			ActorID:  user.ID,
			Action:   audit.ActionUpload,
			Resource: rbac.ResourceMedia,
			EntityID: id,
			Metadata: map[string]any{"content_type": img.ContentType, "width": img.Width, "height": img.Height},
		})
	})
	if err != nil {
		s.removeObjects(r, originalKey, thumbKey)
		internalError(w, r, "Failed to save media", err)
		return
	}

	resp, err := s.mediaResponse(r.Context(), m)
	if err != nil {
		internalError(w, r, "Failed to sign media URLs", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) ListMedia(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authorize(w, r, rbac.ResourceMedia, rbac.ActionRead, false); !ok {
		return
	}
	limit, offset, errb := paginationFromQuery(r)
	if errb != nil {
		writeError(w, errb)
		return
	}
	var productID *uuid.UUID
	if raw := r.URL.Query().Get("product_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, ValidationErr("Invalid product_id", []ErrorDetail{{Field: "product_id", Message: "must be a UUID"}}))
			return
		}
		productID = &id
	}

	q := s.db.Queries()
	items, err := q.ListMedia(r.Context(), productID, limit, offset)
	if err != nil {
		internalError(w, r, "Failed to list media", err)
		return
	}
	total, err := q.CountMedia(r.Context(), productID)
	if err != nil {
		internalError(w, r, "Failed to count media", err)
		return
	}

	resp := make([]MediaResponse, 0, len(items))
	for _, m := range items {
		mr, err := s.mediaResponse(r.Context(), m)
		if err != nil {
			internalError(w, r, "Failed to sign media URLs", err)
			return
		}
		resp = append(resp, mr)
	}
	writeJSON(w, http.StatusOK, listOf(resp, total, limit, offset))
}

// DeleteMedia removes the row first and then the stored objects. Objects
// that fail to delete are logged as orphans; the row is already gone.
func (s *Server) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authorize(w, r, rbac.ResourceMedia, rbac.ActionDelete, false)
	if !ok {
		return
	}
	id, errb := uuidParam(r, "id")
	if errb != nil {
		writeError(w, errb)
		return
	}

	m, err := s.db.Queries().GetMedia(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, NotFound("Media"))
		return
	}
	if err != nil {
		internalError(w, r, "Failed to load media", err)
		return
	}

	err = s.db.InTx(r.Context(), func(q *database.Queries) error {
		if err := q.DeleteMedia(r.Context(), id); err != nil {
			return err
		}
		return s.audit.Record(r.Context(), q, audit.Entry{
			ActorID:  user.ID,
			Action:   audit.ActionDelete,
			Resource: rbac.ResourceMedia,
			EntityID: id,
		})
	})
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, NotFound("Media"))
		return
	}
	if err != nil {
		internalError(w, r, "Failed to delete media", err)
		return
	}

	s.removeObjects(r, m.S3Key, m.ThumbnailKey)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) mediaResponse(ctx context.Context, m database.Media) (MediaResponse, error) {
	url, err := s.media.PresignGetURL(ctx, m.S3Key, presignTTL)
	if err != nil {
		return MediaResponse{}, err
	}
	thumb, err := s.media.PresignGetURL(ctx, m.ThumbnailKey, presignTTL)
	if err != nil {
		return MediaResponse{}, err
	}
	return MediaResponse{
		ID:           m.ID,
		ProductID:    m.ProductID,
		ContentType:  m.ContentType,
		Width:        m.Width,
		Height:       m.Height,
		URL:          url,
		ThumbnailURL: thumb,
		UploadedBy:   m.UploadedBy,
		CreatedAt:    m.CreatedAt,
	}, nil
}

func (s *Server) removeObjects(r *http.Request, keys ...string) {
	for _, key := range keys {
		if err := s.media.DeleteObject(r.Context(), key); err != nil {
			logRequestError(r, "Failed to remove orphaned object", err)
		}
	}
}
