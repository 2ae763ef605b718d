package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatlead/convo-pipeline/internal/config"
	"github.com/chatlead/convo-pipeline/internal/model"
	"github.com/chatlead/convo-pipeline/pkg/utils"
)

// memoryThreadRepo implements the atomic upsert and claim contracts of the
// real repository under a single mutex, so concurrent service calls hit
// the same conditional-insert semantics the database enforces.
type memoryThreadRepo struct {
	mu      sync.Mutex
	nextID  int64
	threads map[string]*model.ConversationThread
}

func newMemoryThreadRepo() *memoryThreadRepo {
	return &memoryThreadRepo{threads: make(map[string]*model.ConversationThread)}
}

func naturalKey(t model.ConversationThread) string {
	return strings.Join([]string{t.BusinessID, t.Channel, t.ConversationKey}, "|")
}

func (r *memoryThreadRepo) UpsertInbound(ctx context.Context, thread model.ConversationThread) (model.ConversationThread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.threads[naturalKey(thread)]
	if !ok {
		r.nextID++
		thread.ID = r.nextID
		thread.UnreadCount = 1
		stored := thread
		r.threads[naturalKey(thread)] = &stored
		return stored, nil
	}

	existing.UnreadCount++
	if existing.ContactName == "" {
		existing.ContactName = thread.ContactName
	}
	if existing.ContactHandle == "" {
		existing.ContactHandle = thread.ContactHandle
	}
	existing.LastMessageText = thread.LastMessageText
	existing.LastMessageDirection = thread.LastMessageDirection
	existing.LastMessageAt = thread.LastMessageAt
	existing.LastIntent = thread.LastIntent
	return *existing, nil
}

func (r *memoryThreadRepo) UpsertOutbound(ctx context.Context, thread model.ConversationThread) (model.ConversationThread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.threads[naturalKey(thread)]
	if !ok {
		r.nextID++
		thread.ID = r.nextID
		thread.UnreadCount = 0
		stored := thread
		r.threads[naturalKey(thread)] = &stored
		return stored, nil
	}

	existing.UnreadCount = 0
	existing.LastMessageText = thread.LastMessageText
	existing.LastMessageDirection = thread.LastMessageDirection
	existing.LastMessageAt = thread.LastMessageAt
	return *existing, nil
}

func (r *memoryThreadRepo) ClaimUsageWindow(ctx context.Context, threadID int64, windowDur time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	thread := r.findByID(threadID)
	if thread == nil {
		return false, nil
	}
	now := utils.Now()
	cutoff := now.Add(-windowDur)
	if thread.LastUsageWindowAt == nil || !thread.LastUsageWindowAt.After(cutoff) {
		thread.LastUsageWindowAt = &now
		return true, nil
	}
	return false, nil
}

func (r *memoryThreadRepo) ClaimPromoSlot(ctx context.Context, threadID int64, cooldown time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	thread := r.findByID(threadID)
	if thread == nil {
		return false, nil
	}
	now := utils.Now()
	cutoff := now.Add(-cooldown)
	if thread.LastPromoSentAt == nil || !thread.LastPromoSentAt.After(cutoff) {
		thread.LastPromoSentAt = &now
		return true, nil
	}
	return false, nil
}

func (r *memoryThreadRepo) Close(ctx context.Context) error {
	return nil
}

func (r *memoryThreadRepo) findByID(id int64) *model.ConversationThread {
	for _, t := range r.threads {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (r *memoryThreadRepo) snapshot() []model.ConversationThread {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.ConversationThread, 0, len(r.threads))
	for _, t := range r.threads {
		out = append(out, *t)
	}
	return out
}

type memoryMessageRepo struct {
	mu   sync.Mutex
	rows []model.Message
}

func (r *memoryMessageRepo) SaveMessage(ctx context.Context, message model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, message)
	return nil
}

func (r *memoryMessageRepo) OutboundExistsByProviderID(ctx context.Context, channel, providerMessageID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Direction == model.MessageDirectionOutbound && row.ProviderMessageID == providerMessageID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryMessageRepo) FindRecentByConversation(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	all, _ := r.FindAllByConversation(ctx, conversationID)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (r *memoryMessageRepo) FindAllByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Message
	for _, row := range r.rows {
		if row.ConversationID == conversationID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memoryMessageRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func TestRecordInbound_ConcurrentFirstContact(t *testing.T) {
	const workers = 32

	threads := newMemoryThreadRepo()
	messages := &memoryMessageRepo{}
	svc := NewPipelineService(threads, messages, nil, nil, nil, nil, nil, nil, nil, nil, &config.Config{})

	var wg sync.WaitGroup
	storedIDs := make(chan int64, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stored, err := svc.RecordInbound(qualifyCtx(), inboundMessage(), "pricing")
			storedIDs <- stored.ID
			errs <- err
		}()
	}
	wg.Wait()
	close(storedIDs)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// Exactly one thread row for the brand-new conversation, no increment lost.
	stored := threads.snapshot()
	require.Len(t, stored, 1)
	assert.Equal(t, int32(workers), stored[0].UnreadCount)
	assert.Equal(t, "Jordan", stored[0].ContactName)
	assert.Equal(t, workers, messages.count())

	for id := range storedIDs {
		assert.Equal(t, stored[0].ID, id)
	}
}

func TestClaimUsageWindow_ConcurrentSingleWinner(t *testing.T) {
	const workers = 16

	threads := newMemoryThreadRepo()
	seed, err := threads.UpsertInbound(qualifyCtx(), model.ConversationThread{
		BusinessID:      testBusinessID,
		Channel:         model.ChannelWhatsApp,
		ConversationKey: "628123456789",
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wins := make(chan bool, workers)
	claimErrs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, claimErr := threads.ClaimUsageWindow(qualifyCtx(), seed.ID, 24*time.Hour)
			wins <- claimed
			claimErrs <- claimErr
		}()
	}
	wg.Wait()
	close(wins)
	close(claimErrs)

	for claimErr := range claimErrs {
		require.NoError(t, claimErr)
	}
	winners := 0
	for claimed := range wins {
		if claimed {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}
