package storage

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatlead/convo-pipeline/internal/apperrors"
	"github.com/chatlead/convo-pipeline/internal/model"
	"github.com/chatlead/convo-pipeline/pkg/utils"
)

func testThread() model.ConversationThread {
	return model.ConversationThread{
		BusinessID:           testBusinessID,
		Channel:              model.ChannelWhatsApp,
		ConversationKey:      "628123456789",
		ContactName:          "Jamie",
		ContactHandle:        "628123456789",
		LastMessageText:      "how much is a haircut?",
		LastMessageDirection: model.MessageDirectionInbound,
		LastMessageAt:        utils.Now(),
		LastIntent:           "pricing",
	}
}

func TestUpsertInbound(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		gormDB, mock, teardown := newMockDB(t)
		t.Cleanup(teardown)
		repo := &PostgresRepo{db: gormDB}

		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "conversation_threads"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "unread_count"}).AddRow(int64(42), int32(3)))

		stored, err := repo.UpsertInbound(testCtx(), testThread())
		require.NoError(t, err)
		assert.Equal(t, int64(42), stored.ID)
		assert.Equal(t, int32(3), stored.UnreadCount)
	})

	t.Run("Preserves Stored Contact Fields", func(t *testing.T) {
		gormDB, mock, teardown := newMockDB(t)
		t.Cleanup(teardown)
		repo := &PostgresRepo{db: gormDB}

		// The stored value must win over the incoming one, so a contact
		// name captured once is never clobbered by later messages.
		pattern := regexp.QuoteMeta(`"contact_handle"=COALESCE(NULLIF(conversation_threads.contact_handle, ''), excluded.contact_handle)`) +
			`.*` +
			regexp.QuoteMeta(`"contact_name"=COALESCE(NULLIF(conversation_threads.contact_name, ''), excluded.contact_name)`) +
			`.*` +
			regexp.QuoteMeta(`conversation_threads.unread_count + 1`)
		mock.ExpectQuery(pattern).
			WillReturnRows(sqlmock.NewRows([]string{"id", "unread_count"}).AddRow(int64(42), int32(2)))

		_, err := repo.UpsertInbound(testCtx(), testThread())
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Tenant Mismatch", func(t *testing.T) {
		gormDB, _, _ := newMockDB(t)
		repo := &PostgresRepo{db: gormDB}

		thread := testThread()
		thread.BusinessID = "someone-else"
		_, err := repo.UpsertInbound(testCtx(), thread)
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	})

	t.Run("Missing Tenant", func(t *testing.T) {
		gormDB, _, _ := newMockDB(t)
		repo := &PostgresRepo{db: gormDB}

		_, err := repo.UpsertInbound(context.Background(), testThread())
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}

func TestUpsertOutbound(t *testing.T) {
	gormDB, mock, teardown := newMockDB(t)
	t.Cleanup(teardown)
	repo := &PostgresRepo{db: gormDB}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "conversation_threads"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "unread_count"}).AddRow(int64(42), int32(0)))

	thread := testThread()
	thread.LastMessageDirection = model.MessageDirectionOutbound

	stored, err := repo.UpsertOutbound(testCtx(), thread)
	require.NoError(t, err)
	assert.Equal(t, int64(42), stored.ID)
	assert.Equal(t, int32(0), stored.UnreadCount)
}

func TestClaimUsageWindow(t *testing.T) {
	window := 24 * time.Hour

	t.Run("Claimed", func(t *testing.T) {
		gormDB, mock, teardown := newMockDB(t)
		t.Cleanup(teardown)
		repo := &PostgresRepo{db: gormDB}

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "conversation_threads" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		claimed, err := repo.ClaimUsageWindow(testCtx(), 42, window)
		require.NoError(t, err)
		assert.True(t, claimed)
	})

	t.Run("Cutoff Is Inclusive", func(t *testing.T) {
		gormDB, mock, teardown := newMockDB(t)
		t.Cleanup(teardown)
		repo := &PostgresRepo{db: gormDB}

		// A window stamped exactly windowDur ago has elapsed and must be
		// reclaimable, so the comparison is <=, not <.
		mock.ExpectExec(regexp.QuoteMeta(`last_usage_window_at IS NULL OR last_usage_window_at <= $`)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		claimed, err := repo.ClaimUsageWindow(testCtx(), 42, window)
		require.NoError(t, err)
		assert.True(t, claimed)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Window Already Open", func(t *testing.T) {
		gormDB, mock, teardown := newMockDB(t)
		t.Cleanup(teardown)
		repo := &PostgresRepo{db: gormDB}

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "conversation_threads" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		claimed, err := repo.ClaimUsageWindow(testCtx(), 42, window)
		require.NoError(t, err)
		assert.False(t, claimed)
	})
}

func TestClaimPromoSlot(t *testing.T) {
	cooldown := 24 * time.Hour

	t.Run("Claimed", func(t *testing.T) {
		gormDB, mock, teardown := newMockDB(t)
		t.Cleanup(teardown)
		repo := &PostgresRepo{db: gormDB}

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "conversation_threads" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		claimed, err := repo.ClaimPromoSlot(testCtx(), 42, cooldown)
		require.NoError(t, err)
		assert.True(t, claimed)
	})

	t.Run("Inside Cooldown", func(t *testing.T) {
		gormDB, mock, teardown := newMockDB(t)
		t.Cleanup(teardown)
		repo := &PostgresRepo{db: gormDB}

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "conversation_threads" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		claimed, err := repo.ClaimPromoSlot(testCtx(), 42, cooldown)
		require.NoError(t, err)
		assert.False(t, claimed)
	})
}
