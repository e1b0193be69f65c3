package service

import (
	"context"
	"fmt"

	"github.com/BytePitApp/bytepit-api/internal/domain/model"
	"github.com/BytePitApp/bytepit-api/internal/domain/repository"
)

type AdminService struct {
	userRepo repository.UserRepository
}

func NewAdminService(userRepo repository.UserRepository) *AdminService {
	return &AdminService{userRepo: userRepo}
}

type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=contestant organiser admin"`
}

func (s *AdminService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.userRepo.List(ctx)
}

func (s *AdminService) ListUnapprovedOrganisers(ctx context.Context) ([]model.User, error) {
	return s.userRepo.ListUnapprovedOrganisers(ctx)
}

func (s *AdminService) ApproveOrganiser(ctx context.Context, username string) error {
	if err := s.userRepo.Approve(ctx, username); err != nil {
		return fmt.Errorf("approve organiser %s: %w", username, err)
	}
	return nil
}

// ChangeRole moves a user to another role. A new organiser has to be approved again.
func (s *AdminService) ChangeRole(ctx context.Context, username string, req ChangeRoleRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}
	approved := req.Role != model.RoleOrganiser
	if err := s.userRepo.UpdateRole(ctx, username, req.Role, approved); err != nil {
		return fmt.Errorf("change role of %s: %w", username, err)
	}
	return nil
}
