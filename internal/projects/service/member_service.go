package service

import (
	"context"
	"strings"

	"github.com/taskdeck/taskdeck-backend/internal/events"
	"github.com/taskdeck/taskdeck-backend/internal/projects/domain"
)

// ListMembers is visible to every member.
func (s *ProjectService) ListMembers(ctx context.Context, userID, publicID string) ([]domain.Member, error) {
	access, err := s.repo.Access(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, access.ProjectID)
}

// AddMember adds a registered user as editor or viewer. Owner only.
func (s *ProjectService) AddMember(ctx context.Context, userID, publicID, email, role string) (*domain.Member, error) {
	access, err := s.repo.Access(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(); err != nil {
		return nil, err
	}
	if role == "" {
		role = domain.RoleViewer
	}
	if role != domain.RoleEditor && role != domain.RoleViewer {
		return nil, domain.ErrInvalidRole
	}

	email = strings.ToLower(strings.TrimSpace(email))
	memberID, name, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	addedAt, err := s.repo.AddMember(ctx, access.ProjectID, memberID, role)
	if err != nil {
		return nil, err
	}
	s.events.Publish(ctx, events.Event{Type: events.ProjectMemberAdded, ProjectID: access.ProjectID, ActorID: userID, Value: memberID})
	return &domain.Member{
		ProjectID:   access.ProjectID,
		UserID:      memberID,
		Role:        role,
		Email:       email,
		DisplayName: name,
		AddedAt:     addedAt,
	}, nil
}

// UpdateMemberRole switches a member between editor and viewer. Owner only.
func (s *ProjectService) UpdateMemberRole(ctx context.Context, userID, publicID, memberID, role string) error {
	access, err := s.repo.Access(ctx, userID, publicID)
	if err != nil {
		return err
	}
	if err := access.RequireOwner(); err != nil {
		return err
	}
	if role != domain.RoleEditor && role != domain.RoleViewer {
		return domain.ErrInvalidRole
	}
	if memberID == userID {
		return domain.ErrOwnerRemoval
	}
	return s.repo.UpdateMemberRole(ctx, access.ProjectID, memberID, role)
}

// RemoveMember removes a member. The owner may remove anyone but themselves;
// other members may only remove themselves.
func (s *ProjectService) RemoveMember(ctx context.Context, userID, publicID, memberID string) error {
	access, err := s.repo.Access(ctx, userID, publicID)
	if err != nil {
		return err
	}

	switch {
	case memberID == userID && access.CanManage():
		return domain.ErrOwnerRemoval
	case memberID != userID && !access.CanManage():
		return domain.ErrForbidden
	}
	if err := s.repo.RemoveMember(ctx, access.ProjectID, memberID); err != nil {
		return err
	}
	s.events.Publish(ctx, events.Event{Type: events.ProjectMemberRemoved, ProjectID: access.ProjectID, ActorID: userID, Value: memberID})
	return nil
}
