package store

import (
	"context"
	"errors"
	"sync"
)

// 内存实现，测试用：可注入写失败来验证重试路径。

var errInjectedWrite = errors.New("injected write failure")

type MemoryFast struct {
	mu        sync.Mutex
	snapshots map[int64][]byte
	failNext  int
}

func NewMemoryFast() *MemoryFast {
	return &MemoryFast{snapshots: make(map[int64][]byte)}
}

// FailNextWrites 让接下来 n 次写失败。
func (f *MemoryFast) FailNextWrites(n int) {
	f.mu.Lock()
	f.failNext = n
	f.mu.Unlock()
}

func (f *MemoryFast) Write(ctx context.Context, guestID int64, snapshot []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failNext > 0 {
		f.failNext--
		return errInjectedWrite
	}

	f.snapshots[guestID] = append([]byte(nil), snapshot...)
	return nil
}

func (f *MemoryFast) Read(ctx context.Context, guestID int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.snapshots[guestID]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

type MemoryBulk struct {
	mu       sync.Mutex
	slices   map[sliceKey][]byte
	failNext int
	writes   int
}

func NewMemoryBulk() *MemoryBulk {
	return &MemoryBulk{slices: make(map[sliceKey][]byte)}
}

// FailNextWrites 让接下来 n 次写失败。
func (b *MemoryBulk) FailNextWrites(n int) {
	b.mu.Lock()
	b.failNext = n
	b.mu.Unlock()
}

// WriteCount 返回累计写次数（含失败尝试）。
func (b *MemoryBulk) WriteCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}

func (b *MemoryBulk) Write(ctx context.Context, guestID int64, slice string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.writes++
	if b.failNext > 0 {
		b.failNext--
		return errInjectedWrite
	}

	b.slices[sliceKey{guestID: guestID, slice: slice}] = append([]byte(nil), data...)
	return nil
}

func (b *MemoryBulk) Read(ctx context.Context, guestID int64, slice string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, ok := b.slices[sliceKey{guestID: guestID, slice: slice}]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

// Put 直接放入一条切片，测试 hydration 用。
func (b *MemoryBulk) Put(guestID int64, slice string, data []byte) {
	b.mu.Lock()
	b.slices[sliceKey{guestID: guestID, slice: slice}] = append([]byte(nil), data...)
	b.mu.Unlock()
}
