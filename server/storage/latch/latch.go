package latch

import "sync"

// Latch 页面闩锁，串行化对同一页面镜像的并发修改
type Latch struct {
	mu sync.RWMutex
}

// NewLatch 创建一个新的闩锁
func NewLatch() *Latch {
	return &Latch{}
}

// Lock 获取写闩
func (l *Latch) Lock() {
	l.mu.Lock()
}

// Unlock 释放写闩
func (l *Latch) Unlock() {
	l.mu.Unlock()
}

// RLock 获取读闩
func (l *Latch) RLock() {
	l.mu.RLock()
}

// RUnlock 释放读闩
func (l *Latch) RUnlock() {
	l.mu.RUnlock()
}

// TryLock 尝试获取写闩
func (l *Latch) TryLock() bool {
	return l.mu.TryLock()
}
