package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTiered(fast *MemoryFast, bulk *MemoryBulk) *Tiered {
	return NewTiered(fast, bulk, zap.NewNop())
}

func TestFastTierRoundTrip(t *testing.T) {
	ctx := context.Background()
	tiered := newTestTiered(NewMemoryFast(), NewMemoryBulk())
	defer tiered.Close(ctx)

	require.NoError(t, tiered.WriteFast(ctx, 1, []byte(`{"guest_id":1}`)))

	data, err := tiered.ReadFast(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"guest_id":1}`), data)

	// 不存在的 guest 返回 (nil, nil)
	data, err = tiered.ReadFast(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestBulkWriteEventuallyFlushes(t *testing.T) {
	ctx := context.Background()
	bulk := NewMemoryBulk()
	tiered := newTestTiered(NewMemoryFast(), bulk)

	tiered.WriteBulk(1, "schedules", []byte(`[{"id":1}]`))
	tiered.Close(ctx) // Close 前会把 pending 刷干净

	data, err := bulk.Read(ctx, 1, "schedules")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[{"id":1}]`), data)
}

func TestBulkWriteFailureRetriedOnNextFlush(t *testing.T) {
	ctx := context.Background()
	bulk := NewMemoryBulk()
	tiered := newTestTiered(NewMemoryFast(), bulk)

	bulk.FailNextWrites(1)
	tiered.WriteBulk(1, "schedules", []byte(`[{"id":1}]`))
	tiered.Flush(ctx)

	// 失败的数据留在 pending，Close 前的最后一次 flush 重试成功
	tiered.Close(ctx)

	data, err := bulk.Read(ctx, 1, "schedules")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[{"id":1}]`), data)
	assert.GreaterOrEqual(t, bulk.WriteCount(), 2)
}

func TestBulkRetryPrefersNewerData(t *testing.T) {
	ctx := context.Background()
	bulk := NewMemoryBulk()
	tiered := newTestTiered(NewMemoryFast(), bulk)

	bulk.FailNextWrites(1)
	tiered.WriteBulk(1, "schedules", []byte(`[{"id":1}]`))
	tiered.Flush(ctx)

	// 重试之前同一切片又有新数据：以新数据为准，旧数据不得回写覆盖
	tiered.WriteBulk(1, "schedules", []byte(`[{"id":1},{"id":2}]`))
	tiered.Close(ctx)

	data, err := bulk.Read(ctx, 1, "schedules")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[{"id":1},{"id":2}]`), data)
}

func TestBulkSlicesAreIndependent(t *testing.T) {
	ctx := context.Background()
	bulk := NewMemoryBulk()
	tiered := newTestTiered(NewMemoryFast(), bulk)

	tiered.WriteBulk(1, "schedules", []byte(`[1]`))
	tiered.WriteBulk(1, "contacts", []byte(`[2]`))
	tiered.WriteBulk(2, "schedules", []byte(`[3]`))
	tiered.Close(ctx)

	for _, tc := range []struct {
		guestID int64
		slice   string
		want    string
	}{
		{1, "schedules", `[1]`},
		{1, "contacts", `[2]`},
		{2, "schedules", `[3]`},
	} {
		data, err := bulk.Read(ctx, tc.guestID, tc.slice)
		require.NoError(t, err)
		assert.Equal(t, []byte(tc.want), data)
	}
}
