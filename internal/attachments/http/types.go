package http

import (
	"context"
	"io"

	"github.com/taskdeck/taskdeck-backend/internal/attachments/domain"
)

type Service interface {
	Upload(ctx context.Context, userID, publicID string, up domain.Upload) (*domain.Attachment, error)
	List(ctx context.Context, userID, publicID, taskID string) ([]domain.Attachment, error)
	Get(ctx context.Context, userID, id string) (*domain.Attachment, error)
	Open(ctx context.Context, userID, id string) (*domain.Attachment, io.ReadCloser, error)
	Delete(ctx context.Context, userID, id string) error
}

type Handler struct {
	svc      Service
	maxBytes int64
}

// New builds the handler. maxBytes caps the uploaded file size.
func New(svc Service, maxBytes int64) *Handler {
	return &Handler{svc: svc, maxBytes: maxBytes}
}
