package store

// 两级持久化的统一入口：fast 层同步写整份快照，reload 安全性以它为准；
// bulk 层按 collection 异步写大切片，失败只记录并在后续变更时重试，
// 绝不把错误抛回变更路径。重试与顺序策略集中在这一个包里。

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// FastTier 小而同步的快照层，每个 guest 一条记录。
type FastTier interface {
	Write(ctx context.Context, guestID int64, snapshot []byte) error
	Read(ctx context.Context, guestID int64) ([]byte, error) // 不存在时返回 (nil, nil)
}

// BulkTier 大而异步的切片层，每个 (guest, collection) 一条记录。
type BulkTier interface {
	Write(ctx context.Context, guestID int64, slice string, data []byte) error
	Read(ctx context.Context, guestID int64, slice string) ([]byte, error) // 不存在时返回 (nil, nil)
}

type sliceKey struct {
	guestID int64
	slice   string
}

// Tiered 组合两级存储。bulk 写走后台 flusher，同一 (guest, slice)
// 只保留最新一份待写数据，天然 last-write-wins，不会让旧 goroutine
// 覆盖新数据。
type Tiered struct {
	fast   FastTier
	bulk   BulkTier
	logger *zap.Logger

	mu      sync.Mutex
	pending map[sliceKey][]byte
	notify  chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewTiered 创建并启动后台 flusher。
func NewTiered(fast FastTier, bulk BulkTier, logger *zap.Logger) *Tiered {
	t := &Tiered{
		fast:    fast,
		bulk:    bulk,
		logger:  logger,
		pending: make(map[sliceKey][]byte),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	t.wg.Add(1)
	go t.flushLoop()

	return t
}

// WriteFast 同步写快照层。
func (t *Tiered) WriteFast(ctx context.Context, guestID int64, snapshot []byte) error {
	return t.fast.Write(ctx, guestID, snapshot)
}

// ReadFast 读快照层。
func (t *Tiered) ReadFast(ctx context.Context, guestID int64) ([]byte, error) {
	return t.fast.Read(ctx, guestID)
}

// WriteBulk 异步写切片层：登记最新数据并唤醒 flusher，立即返回。
// 之前失败遗留的同键数据被新数据替换后一并重试。
func (t *Tiered) WriteBulk(guestID int64, slice string, data []byte) {
	t.mu.Lock()
	t.pending[sliceKey{guestID: guestID, slice: slice}] = data
	t.mu.Unlock()

	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// ReadBulk 读切片层。
func (t *Tiered) ReadBulk(ctx context.Context, guestID int64, slice string) ([]byte, error) {
	return t.bulk.Read(ctx, guestID, slice)
}

// Flush 同步刷掉当前所有待写切片，测试和优雅关闭用。
func (t *Tiered) Flush(ctx context.Context) {
	t.flushPending(ctx)
}

// Close 停掉 flusher，先尽力刷一遍再退出。
func (t *Tiered) Close(ctx context.Context) {
	close(t.done)
	t.wg.Wait()
	t.flushPending(ctx)
}

func (t *Tiered) flushLoop() {
	defer t.wg.Done()

	for {
		select {
		case <-t.done:
			return
		case <-t.notify:
			t.flushPending(context.Background())
		}
	}
}

// flushPending 逐个尝试待写切片。成功移除，失败留在 pending
// 等下一次变更唤醒时重试——fast 层已经保证了 reload 安全，
// bulk 写只是尽力而为的持久化增强。
func (t *Tiered) flushPending(ctx context.Context) {
	t.mu.Lock()
	batch := make(map[sliceKey][]byte, len(t.pending))
	for k, v := range t.pending {
		batch[k] = v
		delete(t.pending, k)
	}
	t.mu.Unlock()

	for k, data := range batch {
		if err := t.bulk.Write(ctx, k.guestID, k.slice, data); err != nil {
			t.logger.Warn("Bulk tier write failed, will retry on next mutation",
				zap.Int64("guest_id", k.guestID),
				zap.String("slice", k.slice),
				zap.Error(err),
			)

			t.mu.Lock()
			// 重试期间若有更新数据写入，以新数据为准
			if _, exists := t.pending[k]; !exists {
				t.pending[k] = data
			}
			t.mu.Unlock()
		}
	}
}
