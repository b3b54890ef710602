package http

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apihttp "github.com/taskdeck/taskdeck-backend/internal/api/http"
	"github.com/taskdeck/taskdeck-backend/internal/attachments/domain"
	"github.com/taskdeck/taskdeck-backend/internal/auth"
	"github.com/taskdeck/taskdeck-backend/internal/logging"
	projectdomain "github.com/taskdeck/taskdeck-backend/internal/projects/domain"
)

// multipartOverhead is the allowance for form boundaries and headers on top of the file.
const multipartOverhead = 1 << 20

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": domain.ErrTooLarge.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fh.Size > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": domain.ErrTooLarge.Error()})
		return
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, err, "failed to read upload")
		return
	}
	defer f.Close()

	a, err := h.svc.Upload(c.Request.Context(), auth.UserID(c), c.Param("id"), domain.Upload{
		TaskID:      c.PostForm("task_id"),
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	})
	if err != nil {
		writeError(c, err, "failed to upload attachment")
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) list(c *gin.Context) {
	taskID := strings.TrimSpace(c.Query("task_id"))
	if taskID != "" && uuid.Validate(taskID) != nil {
		writeError(c, domain.ErrInvalidTask, "failed to list attachments")
		return
	}

	items, err := h.svc.List(c.Request.Context(), auth.UserID(c), c.Param("id"), taskID)
	if err != nil {
		writeError(c, err, "failed to list attachments")
		return
	}
	c.JSON(http.StatusOK, apihttp.NewPage(items, len(items)))
}

func (h *Handler) get(c *gin.Context) {
	a, err := h.svc.Get(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to load attachment")
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) download(c *gin.Context) {
	a, rc, err := h.svc.Open(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to open attachment")
		return
	}
	defer rc.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": a.FileName})
	c.DataFromReader(http.StatusOK, a.SizeBytes, a.ContentType, rc, map[string]string{
		"Content-Disposition": disposition,
		"X-Content-Checksum":  "sha256=" + a.Checksum,
		"Cache-Control":       "private, no-store",
	})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		writeError(c, err, "failed to delete attachment")
		return
	}
	c.Status(http.StatusNoContent)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrBlobNotFound), errors.Is(err, projectdomain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, projectdomain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrEmptyFile), errors.Is(err, domain.ErrInvalidName), errors.Is(err, domain.ErrTaskMismatch),
		errors.Is(err, domain.ErrInvalidTask):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logging.FromContext(c.Request.Context()).WithError(err).Error(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
