// Package recorder persists one message row per completed chat turn.
package recorder

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ragline-ai/ragline/internal/models"
	"github.com/ragline-ai/ragline/internal/storage"
	"github.com/ragline-ai/ragline/internal/utils"
)

const maxGeneratedTitleLen = 80

// TurnRecorder writes the audit record for a chat turn. Implementations
// must write exactly one record per call and return the conversation
// the record was attached to.
type TurnRecorder interface {
	Record(ctx context.Context, rec models.TurnRecord) (uint, error)
}

// DBRecorder stores turn records in the relational database, creating
// the conversation on first use.
type DBRecorder struct {
	db *storage.DB
}

func NewDBRecorder(db *storage.DB) *DBRecorder {
	return &DBRecorder{db: db}
}

// Record appends the turn to its conversation inside one transaction.
// A zero ConversationID starts a new conversation titled from the
// prompt. A missing conversation is reported as a not-found error so
// the handler can map it to 404.
func (r *DBRecorder) Record(ctx context.Context, rec models.TurnRecord) (uint, error) {
	conversationID := rec.ConversationID

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if conversationID == 0 {
			conversation := models.Conversation{Title: titleFromPrompt(rec.RequestContent)}
			if err := tx.Create(&conversation).Error; err != nil {
				return err
			}
			conversationID = conversation.ID
		} else {
			var conversation models.Conversation
			if err := tx.First(&conversation, conversationID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return models.NewNotFoundError("conversation not found")
				}
				return err
			}
		}

		message := models.Message{
			ConversationID:  conversationID,
			RequestContent:  rec.RequestContent,
			ResponseContent: rec.ResponseContent,
			ThinkingContent: rec.ThinkingContent,
			RAGContent:      rec.RAGContent,
			URLContent:      rec.URLContent,
		}
		if err := tx.Create(&message).Error; err != nil {
			return err
		}

		// Recently active conversations sort first in listings
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conversationID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return 0, err
	}
	return conversationID, nil
}

func titleFromPrompt(prompt string) string {
	title := utils.Truncate(strings.TrimSpace(prompt), maxGeneratedTitleLen)
	if title == "" {
		title = "New conversation"
	}
	return title
}
