package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck-backend/internal/attachments/blob"
	"github.com/taskdeck/taskdeck-backend/internal/attachments/domain"
	"github.com/taskdeck/taskdeck-backend/internal/events"
	"github.com/taskdeck/taskdeck-backend/internal/logging"
	projectdomain "github.com/taskdeck/taskdeck-backend/internal/projects/domain"
	taskdomain "github.com/taskdeck/taskdeck-backend/internal/tasks/domain"
)

type Repository interface {
	Create(ctx context.Context, a *domain.Attachment) error
	GetByID(ctx context.Context, id string) (*domain.Attachment, error)
	List(ctx context.Context, projectID, taskID string) ([]domain.Attachment, error)
	Delete(ctx context.Context, id string) error
}

type ProjectAccess interface {
	Resolve(ctx context.Context, userID, publicID string) (*projectdomain.Access, error)
	ResolveByID(ctx context.Context, userID, projectID string) (*projectdomain.Access, error)
}

// TaskLookup loads a task without an access check.
type TaskLookup interface {
	GetUnchecked(ctx context.Context, taskID string) (*taskdomain.Task, error)
}

type AttachmentService struct {
	repo     Repository
	store    blob.Store
	projects ProjectAccess
	tasks    TaskLookup
	events   events.Publisher
	maxBytes int64
}

func NewAttachmentService(repo Repository, store blob.Store, projects ProjectAccess, tasks TaskLookup, publisher events.Publisher, maxBytes int64) *AttachmentService {
	if publisher == nil {
		publisher = events.Discard
	}
	return &AttachmentService{
		repo:     repo,
		store:    store,
		projects: projects,
		tasks:    tasks,
		events:   publisher,
		maxBytes: maxBytes,
	}
}

func (s *AttachmentService) MaxBytes() int64 { return s.maxBytes }

// Upload checksums the body, stores it and records the attachment. The blob is
// removed again when the row cannot be written.
func (s *AttachmentService) Upload(ctx context.Context, userID, publicID string, up domain.Upload) (*domain.Attachment, error) {
	access, err := s.projects.Resolve(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireWrite(); err != nil {
		return nil, err
	}

	name := cleanFileName(up.FileName)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	var taskID *string
	if id := strings.TrimSpace(up.TaskID); id != "" {
		t, err := s.tasks.GetUnchecked(ctx, id)
		if err != nil {
			if errors.Is(err, taskdomain.ErrNotFound) {
				return nil, domain.ErrTaskMismatch
			}
			return nil, err
		}
		if t.ProjectID != access.ProjectID {
			return nil, domain.ErrTaskMismatch
		}
		taskID = &t.ID
	}

	h := sha256.New()
	size, err := io.Copy(h, io.LimitReader(up.Body, s.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if size > s.maxBytes {
		return nil, domain.ErrTooLarge
	}
	if size == 0 {
		return nil, domain.ErrEmptyFile
	}
	if _, err := up.Body.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	a := &domain.Attachment{
		ID:          uuid.NewString(),
		ProjectID:   access.ProjectID,
		TaskID:      taskID,
		FileName:    name,
		ContentType: contentType(up.ContentType, name),
		SizeBytes:   size,
		Checksum:    hex.EncodeToString(h.Sum(nil)),
		UploadedBy:  userID,
	}
	a.StorageKey = path.Join(a.ProjectID, a.ID)

	if err := s.store.Put(ctx, a.StorageKey, io.LimitReader(up.Body, size), size, a.ContentType); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, a); err != nil {
		if derr := s.store.Delete(ctx, a.StorageKey); derr != nil {
			logging.FromContext(ctx).WithError(derr).WithField("key", a.StorageKey).Warn("remove orphaned blob")
		}
		return nil, err
	}

	s.publish(ctx, events.AttachmentAdded, a, userID)
	return a, nil
}

func (s *AttachmentService) List(ctx context.Context, userID, publicID, taskID string) ([]domain.Attachment, error) {
	access, err := s.projects.Resolve(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}
	taskID = strings.TrimSpace(taskID)
	if taskID != "" && uuid.Validate(taskID) != nil {
		return nil, domain.ErrInvalidTask
	}
	return s.repo.List(ctx, access.ProjectID, taskID)
}

func (s *AttachmentService) Get(ctx context.Context, userID, id string) (*domain.Attachment, error) {
	a, _, err := s.load(ctx, userID, id)
	return a, err
}

// Open returns the attachment and its content. Callers close the reader.
func (s *AttachmentService) Open(ctx context.Context, userID, id string) (*domain.Attachment, io.ReadCloser, error) {
	a, _, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(ctx, a.StorageKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, nil, domain.ErrBlobNotFound
		}
		return nil, nil, err
	}
	return a, rc, nil
}

// Delete removes the blob first, then the row.
func (s *AttachmentService) Delete(ctx context.Context, userID, id string) error {
	a, access, err := s.load(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := access.RequireWrite(); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, a.StorageKey); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, a.ID); err != nil {
		return err
	}
	s.publish(ctx, events.AttachmentRemoved, a, userID)
	return nil
}

func (s *AttachmentService) load(ctx context.Context, userID, id string) (*domain.Attachment, *projectdomain.Access, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	access, err := s.projects.ResolveByID(ctx, userID, a.ProjectID)
	if err != nil {
		if errors.Is(err, projectdomain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, err
	}
	return a, access, nil
}

func (s *AttachmentService) publish(ctx context.Context, typ events.Type, a *domain.Attachment, actorID string) {
	e := events.Event{Type: typ, ProjectID: a.ProjectID, ActorID: actorID, Value: a.FileName}
	if a.TaskID != nil {
		e.TaskID = *a.TaskID
	}
	s.events.Publish(ctx, e)
}

// cleanFileName keeps the base name and drops control characters.
func cleanFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}

func contentType(declared, name string) string {
	if declared != "" && declared != "application/octet-stream" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			return mt
		}
	}
	if byExt := mime.TypeByExtension(path.Ext(name)); byExt != "" {
		if mt, _, err := mime.ParseMediaType(byExt); err == nil {
			return mt
		}
	}
	return "application/octet-stream"
}
