// Package testutil holds fakes shared by the feature packages' tests.
package testutil

import (
	"context"
	"sync"

	"github.com/taskdeck/taskdeck-backend/internal/events"
	projectdomain "github.com/taskdeck/taskdeck-backend/internal/projects/domain"
)

const (
	ProjectID = "p1"
	PublicID  = "prj-1"
)

// Access knows one project, p1 / prj-1, and maps its members to roles.
type Access map[string]string

// DefaultAccess has alice as owner, bob as editor and vic as viewer.
func DefaultAccess() Access {
	return Access{
		"alice": projectdomain.RoleOwner,
		"bob":   projectdomain.RoleEditor,
		"vic":   projectdomain.RoleViewer,
	}
}

func (a Access) Resolve(ctx context.Context, userID, publicID string) (*projectdomain.Access, error) {
	if publicID != PublicID {
		return nil, projectdomain.ErrNotFound
	}
	return a.ResolveByID(ctx, userID, ProjectID)
}

func (a Access) ResolveByID(_ context.Context, userID, projectID string) (*projectdomain.Access, error) {
	role, ok := a[userID]
	if !ok || projectID != ProjectID {
		return nil, projectdomain.ErrNotFound
	}
	return &projectdomain.Access{ProjectID: ProjectID, PublicID: PublicID, UserID: userID, Role: role}, nil
}

// Recorder is an events.Publisher that keeps everything it is given.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *Recorder) Publish(_ context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func (r *Recorder) Types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func Ptr[T any](v T) *T { return &v }
