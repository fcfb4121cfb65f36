package models

import "time"

// Conversation groups the turns of one chat session
type Conversation struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Title     string    `gorm:"size:255" json:"title"`
	Messages  []Message `gorm:"constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// Message is one persisted turn. ResponseContent keeps the true generated
// text for audit; ThinkingContent doubles as the explanatory field when a
// guardrail decided the turn's outcome.
type Message struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	ConversationID  uint      `gorm:"index;not null" json:"conversation_id"`
	RequestContent  string    `gorm:"type:text" json:"request_content"`
	ResponseContent string    `gorm:"type:text" json:"response_content"`
	ThinkingContent string    `gorm:"type:text" json:"thinking_content"`
	RAGContent      string    `gorm:"type:text" json:"rag_content"`
	URLContent      string    `gorm:"type:text" json:"url_content"`
}
