package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"StaySafe/internal/model"
	"StaySafe/internal/notify"
	"StaySafe/internal/state"
	"StaySafe/internal/store"
)

type fakeDeliverer struct {
	mu            sync.Mutex
	delivered     []int64
	failIDs       map[int64]bool
	transportDown bool
}

func (f *fakeDeliverer) Deliver(ctx context.Context, guestID int64, item model.OfflineQueueItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.transportDown {
		return ErrTransportDown
	}
	if f.failIDs[item.ID] {
		return errors.New("channel rejected item")
	}
	f.delivered = append(f.delivered, item.ID)
	return nil
}

func (f *fakeDeliverer) deliveredIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.delivered...)
}

type fakeLocker struct {
	denied  bool
	lockErr error
	locks   int
	unlocks int
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.locks++
	if l.lockErr != nil {
		return false, l.lockErr
	}
	return !l.denied, nil
}

func (l *fakeLocker) Unlock(ctx context.Context, key string) error {
	l.unlocks++
	return nil
}

func newDrainTestContainer(t *testing.T, guestID int64) *state.Container {
	t.Helper()

	tiered := store.NewTiered(store.NewMemoryFast(), store.NewMemoryBulk(), zap.NewNop())
	t.Cleanup(func() { tiered.Close(context.Background()) })

	opts := state.Options{DefaultGraceMinutes: 10, EscalationLogMax: 200, FenceEventLogMax: 500}
	return state.NewContainer(guestID, nil, tiered, notify.NewLogSink(zap.NewNop()), zap.NewNop(), opts)
}

func TestDrainDeliversFIFOAndClearsQueue(t *testing.T) {
	ctx := context.Background()
	c := newDrainTestContainer(t, 1)

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := c.Enqueue(ctx, model.ActionStateSync, map[string]interface{}{"seq": i})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	deliverer := &fakeDeliverer{}
	d := NewDrainer(deliverer, nil, zap.NewNop())

	resp := d.Drain(ctx, c)

	assert.Equal(t, 3, resp.Attempted)
	assert.Equal(t, 3, resp.Delivered)
	assert.Equal(t, 0, resp.Remaining)
	assert.Equal(t, string(model.SyncStatusIdle), resp.SyncStatus)

	// 按入队顺序投递
	assert.Equal(t, ids, deliverer.deliveredIDs())
	assert.Empty(t, c.Snapshot().Queue)
}

func TestDrainItemFailureRetriedOnNextPass(t *testing.T) {
	ctx := context.Background()
	c := newDrainTestContainer(t, 1)

	bad, err := c.Enqueue(ctx, model.ActionNotifyContacts, nil)
	require.NoError(t, err)
	good, err := c.Enqueue(ctx, model.ActionStateSync, nil)
	require.NoError(t, err)

	deliverer := &fakeDeliverer{failIDs: map[int64]bool{bad: true}}
	d := NewDrainer(deliverer, nil, zap.NewNop())

	// 单项失败不中断本遍，失败项留在队列等下一轮
	resp := d.Drain(ctx, c)
	assert.Equal(t, 2, resp.Attempted)
	assert.Equal(t, 1, resp.Delivered)
	assert.Equal(t, 1, resp.Remaining)
	assert.Equal(t, string(model.SyncStatusPending), resp.SyncStatus)

	snap := c.Snapshot()
	require.Len(t, snap.Queue, 1)
	assert.Equal(t, bad, snap.Queue[0].ID)
	assert.Equal(t, model.QueueStatusPending, snap.Queue[0].Status)
	assert.Equal(t, []int64{good}, deliverer.deliveredIDs())

	// 通道恢复后重试成功
	deliverer.failIDs = nil
	resp = d.Drain(ctx, c)
	assert.Equal(t, 1, resp.Delivered)
	assert.Equal(t, string(model.SyncStatusIdle), resp.SyncStatus)
	assert.Empty(t, c.Snapshot().Queue)
}

func TestDrainTransportDownAbortsPass(t *testing.T) {
	ctx := context.Background()
	c := newDrainTestContainer(t, 1)

	for i := 0; i < 2; i++ {
		_, err := c.Enqueue(ctx, model.ActionStateSync, nil)
		require.NoError(t, err)
	}

	deliverer := &fakeDeliverer{transportDown: true}
	d := NewDrainer(deliverer, nil, zap.NewNop())

	resp := d.Drain(ctx, c)
	assert.Equal(t, 2, resp.Attempted)
	assert.Equal(t, 0, resp.Delivered)
	assert.Equal(t, 2, resp.Remaining)
	assert.Equal(t, string(model.SyncStatusError), resp.SyncStatus)

	// 全部回退 pending，不丢失
	for _, item := range c.Snapshot().Queue {
		assert.Equal(t, model.QueueStatusPending, item.Status)
	}

	// 通道恢复后同一批数据照常投出
	deliverer.transportDown = false
	resp = d.Drain(ctx, c)
	assert.Equal(t, 2, resp.Delivered)
	assert.Equal(t, string(model.SyncStatusIdle), resp.SyncStatus)
}

func TestDrainLockerDeniedReturnsStatusOnly(t *testing.T) {
	ctx := context.Background()
	c := newDrainTestContainer(t, 1)

	_, err := c.Enqueue(ctx, model.ActionStateSync, nil)
	require.NoError(t, err)

	deliverer := &fakeDeliverer{}
	locker := &fakeLocker{denied: true}
	d := NewDrainer(deliverer, locker, zap.NewNop())

	// 别的进程持有锁：不投递，只汇报现状
	resp := d.Drain(ctx, c)
	assert.Equal(t, 0, resp.Attempted)
	assert.Equal(t, 1, resp.Remaining)
	assert.Empty(t, deliverer.deliveredIDs())
	assert.Equal(t, 0, locker.unlocks) // 没拿到的锁不能去解
}

func TestDrainLockerErrorProceedsWithoutLock(t *testing.T) {
	ctx := context.Background()
	c := newDrainTestContainer(t, 1)

	_, err := c.Enqueue(ctx, model.ActionStateSync, nil)
	require.NoError(t, err)

	deliverer := &fakeDeliverer{}
	locker := &fakeLocker{lockErr: errors.New("redis unreachable")}
	d := NewDrainer(deliverer, locker, zap.NewNop())

	// 锁服务故障降级为进程内互斥，drain 照常进行
	resp := d.Drain(ctx, c)
	assert.Equal(t, 1, resp.Delivered)
	assert.Equal(t, 0, locker.unlocks)
}

func TestDrainEmptyQueueStatusOnly(t *testing.T) {
	ctx := context.Background()
	c := newDrainTestContainer(t, 1)

	deliverer := &fakeDeliverer{}
	locker := &fakeLocker{}
	d := NewDrainer(deliverer, locker, zap.NewNop())

	resp := d.Drain(ctx, c)
	assert.Equal(t, 0, resp.Attempted)
	assert.Equal(t, 0, resp.Remaining)
	assert.Equal(t, string(model.SyncStatusIdle), resp.SyncStatus)

	// 拿到的锁要释放
	assert.Equal(t, 1, locker.locks)
	assert.Equal(t, 1, locker.unlocks)
}
