package service

import (
	"context"

	"task-manager/internal/model"
	"task-manager/internal/repository"
)

// CategoryService provides helpers around categories.
type CategoryService struct {
	repo *repository.CategoryRepository
}

func NewCategoryService(repo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) List(ctx context.Context, userID uint) ([]model.Category, error) {
	return s.repo.ListByUser(ctx, userID)
}

// PriorityService exposes the global priority table.
type PriorityService struct {
	repo *repository.PriorityRepository
}

func NewPriorityService(repo *repository.PriorityRepository) *PriorityService {
	return &PriorityService{repo: repo}
}

func (s *PriorityService) List(ctx context.Context) ([]model.Priority, error) {
	return s.repo.List(ctx)
}
