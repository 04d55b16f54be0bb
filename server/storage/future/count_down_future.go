package future

import (
	"context"
	"strings"
	"sync/atomic"
)

// CompoundError 聚合多个参与方的失败原因
type CompoundError struct {
	causes []error
}

func (e *CompoundError) Error() string {
	if len(e.causes) == 1 {
		return e.causes[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("compound error:")
	for _, c := range e.causes {
		sb.WriteString(" [")
		sb.WriteString(c.Error())
		sb.WriteString("]")
	}
	return sb.String()
}

// Causes 全部失败原因，按上报顺序
func (e *CompoundError) Causes() []error {
	return e.causes
}

func (e *CompoundError) Unwrap() []error {
	return e.causes
}

// CountDownFuture 等待固定数量参与方全部完成的聚合结果
// 每个参与方完成时调用一次 Done，最后一个到达者触发终结，
// 任何参与方的失败都会被收集进复合错误，终结只发生一次
type CountDownFuture struct {
	remaining int32
	completed atomic.Bool
	err       atomic.Value // *CompoundError
	doneCh    chan struct{}
	afterDone func(error)
}

type Option func(*CountDownFuture)

// WithAfterDone 终结时在唤醒等待者之前执行的回调
func WithAfterDone(fn func(error)) Option {
	return func(f *CountDownFuture) {
		f.afterDone = fn
	}
}

// NewCountDownFuture 创建等待 n 个参与方的聚合结果
// n 为 0 时立即以成功态终结
func NewCountDownFuture(n int, opts ...Option) *CountDownFuture {
	f := &CountDownFuture{
		remaining: int32(n),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	if n <= 0 {
		f.finish()
	}
	return f
}

// Done 上报一个参与方完成，err 非空表示该参与方失败
// 返回 true 时本次调用触发了终结；终结之后的多余调用被忽略
func (f *CountDownFuture) Done(err error) bool {
	if f.completed.Load() {
		return false
	}
	if err != nil {
		f.collect(err)
	}
	if atomic.AddInt32(&f.remaining, -1) != 0 {
		return false
	}
	return f.finish()
}

// Remaining 尚未完成的参与方数量
func (f *CountDownFuture) Remaining() int32 {
	n := atomic.LoadInt32(&f.remaining)
	if n < 0 {
		return 0
	}
	return n
}

// Wait 阻塞到终结，返回聚合结果
func (f *CountDownFuture) Wait() error {
	<-f.doneCh
	return f.loadErr()
}

// WaitContext 阻塞到终结或上下文取消
func (f *CountDownFuture) WaitContext(ctx context.Context) error {
	select {
	case <-f.doneCh:
		return f.loadErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DoneCh 终结时关闭的通道，可用于 select
func (f *CountDownFuture) DoneCh() <-chan struct{} {
	return f.doneCh
}

// Err 终结后的聚合结果，未终结时为 nil
func (f *CountDownFuture) Err() error {
	if !f.completed.Load() {
		return nil
	}
	return f.loadErr()
}

// collect 无锁累积失败原因，竞争时重试
func (f *CountDownFuture) collect(err error) {
	for {
		cur := f.err.Load()
		if cur == nil {
			if f.err.CompareAndSwap(nil, &CompoundError{causes: []error{err}}) {
				return
			}
			continue
		}
		old := cur.(*CompoundError)
		causes := make([]error, 0, len(old.causes)+1)
		causes = append(causes, old.causes...)
		causes = append(causes, err)
		if f.err.CompareAndSwap(cur, &CompoundError{causes: causes}) {
			return
		}
	}
}

func (f *CountDownFuture) finish() bool {
	if !f.completed.CompareAndSwap(false, true) {
		return false
	}
	if f.afterDone != nil {
		f.afterDone(f.loadErr())
	}
	close(f.doneCh)
	return true
}

func (f *CountDownFuture) loadErr() error {
	if v := f.err.Load(); v != nil {
		return v.(*CompoundError)
	}
	return nil
}
