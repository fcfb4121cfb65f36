// Package conversations provides CRUD access to stored chat sessions.
package conversations

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ragline-ai/ragline/internal/models"
	"github.com/ragline-ai/ragline/internal/storage"
)

type Service struct {
	db *storage.DB
}

func NewService(db *storage.DB) *Service {
	return &Service{db: db}
}

// List returns all conversations, newest first, without their messages
func (s *Service) List(ctx context.Context) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := s.db.WithContext(ctx).
		Order("updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, models.NewInternalError("failed to list conversations", err)
	}
	return conversations, nil
}

// Get returns one conversation with its messages in creation order
func (s *Service) Get(ctx context.Context, id uint) (*models.Conversation, error) {
	var conversation models.Conversation
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("messages.created_at ASC")
		}).
		First(&conversation, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("conversation not found")
		}
		return nil, models.NewInternalError("failed to load conversation", err)
	}
	return &conversation, nil
}

// Create starts an empty conversation with the given title
func (s *Service) Create(ctx context.Context, title string) (*models.Conversation, error) {
	conversation := models.Conversation{Title: title}
	if err := s.db.WithContext(ctx).Create(&conversation).Error; err != nil {
		return nil, models.NewInternalError("failed to create conversation", err)
	}
	return &conversation, nil
}

// Rename updates a conversation's title
func (s *Service) Rename(ctx context.Context, id uint, title string) (*models.Conversation, error) {
	conversation, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	conversation.Title = title
	if err := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("title", title).Error; err != nil {
		return nil, models.NewInternalError("failed to rename conversation", err)
	}
	return conversation, nil
}

// Delete removes a conversation and its messages
func (s *Service) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).
		Select("Messages").
		Delete(&models.Conversation{ID: id})
	if result.Error != nil {
		return models.NewInternalError("failed to delete conversation", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("conversation not found")
	}
	return nil
}
