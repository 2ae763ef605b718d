package storage

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatlead/convo-pipeline/internal/model"
)

func TestSaveMessage(t *testing.T) {
	gormDB, mock, teardown := newMockDB(t)
	t.Cleanup(teardown)
	repo := &PostgresRepo{db: gormDB}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "messages"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	msg := model.Message{
		BusinessID:       testBusinessID,
		ConversationID:   testConversationID,
		Channel:          model.ChannelWhatsApp,
		Direction:        model.MessageDirectionInbound,
		MessageText:      "hello",
		MessageTimestamp: time.Now().UTC(),
	}
	err := repo.SaveMessage(testCtx(), msg)
	assert.NoError(t, err)
}

func TestOutboundExistsByProviderID(t *testing.T) {
	t.Run("Exists", func(t *testing.T) {
		gormDB, mock, teardown := newMockDB(t)
		t.Cleanup(teardown)
		repo := &PostgresRepo{db: gormDB}

		mock.ExpectQuery(`SELECT count\(\*\) FROM "messages"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))

		exists, err := repo.OutboundExistsByProviderID(testCtx(), model.ChannelWhatsApp, "wamid.123")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Does Not Exist", func(t *testing.T) {
		gormDB, mock, teardown := newMockDB(t)
		t.Cleanup(teardown)
		repo := &PostgresRepo{db: gormDB}

		mock.ExpectQuery(`SELECT count\(\*\) FROM "messages"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))

		exists, err := repo.OutboundExistsByProviderID(testCtx(), model.ChannelWhatsApp, "wamid.456")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Empty Provider ID Short-Circuits", func(t *testing.T) {
		gormDB, _, _ := newMockDB(t)
		repo := &PostgresRepo{db: gormDB}

		exists, err := repo.OutboundExistsByProviderID(testCtx(), model.ChannelWhatsApp, "")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestFindRecentByConversation(t *testing.T) {
	gormDB, mock, teardown := newMockDB(t)
	t.Cleanup(teardown)
	repo := &PostgresRepo{db: gormDB}

	now := time.Now().UTC()
	// Query returns newest first; the repo flips to chronological order.
	rows := sqlmock.NewRows([]string{"id", "business_id", "conversation_id", "message_text", "message_timestamp"}).
		AddRow(int64(3), testBusinessID, testConversationID, "third", now).
		AddRow(int64(2), testBusinessID, testConversationID, "second", now.Add(-time.Minute)).
		AddRow(int64(1), testBusinessID, testConversationID, "first", now.Add(-2*time.Minute))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "messages"`)).
		WillReturnRows(rows)

	messages, err := repo.FindRecentByConversation(testCtx(), testConversationID, 4)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "first", messages[0].MessageText)
	assert.Equal(t, "third", messages[2].MessageText)
}
