package customers

import (
	"context"
	"fmt"
	"strings"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id int64) (*Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	if req.Limit > 200 {
		req.Limit = 200
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	return s.repo.List(ctx, req)
}

// Update applies contact and prescription changes. Renaming onto an existing (phone, name) pair fails with ErrDuplicate.
func (s *Service) Update(ctx context.Context, id int64, req UpdateCustomerRequest) (*Customer, error) {
	var updated *Customer
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		existing, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		c := *existing
		if req.Name != nil {
			c.Name = strings.TrimSpace(*req.Name)
			if c.Name == "" {
				return shared.Invalid("name", "is required")
			}
		}
		if req.Phone != nil {
			c.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.Email != nil {
			email := strings.TrimSpace(*req.Email)
			c.Email = &email
			if email == "" {
				c.Email = nil
			}
		}
		if req.Address != nil {
			c.Address = strings.TrimSpace(*req.Address)
		}
		if req.DoctorName != nil {
			c.DoctorName = strings.TrimSpace(*req.DoctorName)
		}
		if req.PrescriptionNumber != nil {
			c.PrescriptionNumber = strings.TrimSpace(*req.PrescriptionNumber)
		}
		if req.IsActive != nil {
			c.IsActive = *req.IsActive
		}
		updated, err = repo.Update(ctx, c)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return updated, nil
}

// Stats reports completed purchase count, total spent and last purchase date.
func (s *Service) Stats(ctx context.Context, id int64) (Stats, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return Stats{}, err
	}
	return s.repo.Stats(ctx, id)
}
