package recorder

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragline-ai/ragline/internal/models"
	"github.com/ragline-ai/ragline/internal/storage"
)

func testDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.New(models.DatabaseConfig{
		Type:     models.SQLite,
		FilePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRecordAppendsToExistingConversation(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	conversation := models.Conversation{Title: "test"}
	require.NoError(t, db.WithContext(ctx).Create(&conversation).Error)

	r := NewDBRecorder(db)
	id, err := r.Record(ctx, models.TurnRecord{
		ConversationID:  conversation.ID,
		RequestContent:  "what is fiber",
		ResponseContent: "a web framework",
		ThinkingContent: "trace",
		RAGContent:      "rag",
		URLContent:      "urls",
	})
	require.NoError(t, err)
	assert.Equal(t, conversation.ID, id)

	var messages []models.Message
	require.NoError(t, db.WithContext(ctx).Where("conversation_id = ?", id).Find(&messages).Error)
	require.Len(t, messages, 1)
	assert.Equal(t, "what is fiber", messages[0].RequestContent)
	assert.Equal(t, "a web framework", messages[0].ResponseContent)
	assert.Equal(t, "trace", messages[0].ThinkingContent)
}

func TestRecordCreatesConversationWhenMissing(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	r := NewDBRecorder(db)
	id, err := r.Record(ctx, models.TurnRecord{
		RequestContent:  "hello there",
		ResponseContent: "hi",
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	var conversation models.Conversation
	require.NoError(t, db.WithContext(ctx).First(&conversation, id).Error)
	assert.Equal(t, "hello there", conversation.Title)
}

func TestRecordBumpsConversationUpdatedAt(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	conversation := models.Conversation{Title: "test"}
	require.NoError(t, db.WithContext(ctx).Create(&conversation).Error)

	var before models.Conversation
	require.NoError(t, db.WithContext(ctx).First(&before, conversation.ID).Error)

	time.Sleep(10 * time.Millisecond)

	r := NewDBRecorder(db)
	_, err := r.Record(ctx, models.TurnRecord{
		ConversationID: conversation.ID,
		RequestContent: "q",
	})
	require.NoError(t, err)

	var after models.Conversation
	require.NoError(t, db.WithContext(ctx).First(&after, conversation.ID).Error)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt),
		"recording a turn must move the conversation up in listings")
}

func TestRecordUnknownConversationIsNotFound(t *testing.T) {
	db := testDB(t)

	r := NewDBRecorder(db)
	_, err := r.Record(context.Background(), models.TurnRecord{
		ConversationID: 9999,
		RequestContent: "q",
	})
	require.Error(t, err)

	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.ErrorTypeNotFound, appErr.Type)

	var count int64
	require.NoError(t, db.Model(&models.Message{}).Count(&count).Error)
	assert.Zero(t, count, "no message row for a failed record")
}

func TestTitleFromPrompt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short prompt", titleFromPrompt("short prompt"))
	assert.Equal(t, "New conversation", titleFromPrompt("   "))

	long := titleFromPrompt(strings.Repeat("a", 200))
	assert.Len(t, long, maxGeneratedTitleLen)

	// The cut never splits a multi-byte character
	multibyte := titleFromPrompt(strings.Repeat("é", 200))
	assert.True(t, utf8.ValidString(multibyte))
	assert.LessOrEqual(t, len(multibyte), maxGeneratedTitleLen)
}
