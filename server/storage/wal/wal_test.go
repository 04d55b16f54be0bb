package wal

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhukovaskychina/xgrid-storage/server/common"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/basic"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/record"
)

func insertRecord(itemID uint16, row string) basic.Record {
	return record.NewDataPageInsertRecord(1, 100, itemID, []byte(row))
}

// collectAll 从头回放全部记录
func collectAll(t *testing.T, mgr *Manager) ([]basic.Record, []common.WALPointer) {
	t.Helper()
	it, err := mgr.IterateFrom(common.WALPointer{})
	require.NoError(t, err)

	var recs []basic.Record
	var ptrs []common.WALPointer
	for {
		rec, ptr, nextErr := it.Next()
		if nextErr == io.EOF {
			return recs, ptrs
		}
		require.NoError(t, nextErr)
		recs = append(recs, rec)
		ptrs = append(ptrs, ptr)
	}
}

func TestManagerAppendAndReplay(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, 1<<20)
	require.NoError(t, err)
	defer mgr.Close()

	t.Run("追加后按物理顺序回放", func(t *testing.T) {
		rows := []string{"alpha", "beta", "gamma"}
		var appended []common.WALPointer
		for i, row := range rows {
			ptr, appendErr := mgr.AppendRecord(insertRecord(uint16(i), row))
			require.NoError(t, appendErr)
			appended = append(appended, ptr)
		}
		require.NoError(t, mgr.Flush())

		recs, ptrs := collectAll(t, mgr)
		require.Len(t, recs, 3)
		assert.Equal(t, appended, ptrs)
		for i, rec := range recs {
			ins, ok := rec.(*record.DataPageInsertRecord)
			require.True(t, ok)
			assert.Equal(t, rows[i], string(ins.Row()))
		}
	})

	t.Run("指针单调递增", func(t *testing.T) {
		_, ptrs := collectAll(t, mgr)
		for i := 1; i < len(ptrs); i++ {
			assert.True(t, ptrs[i-1].Less(ptrs[i]))
		}
	})

	t.Run("从历史位置重启迭代", func(t *testing.T) {
		recs, ptrs := collectAll(t, mgr)
		require.True(t, len(recs) >= 3)

		it, itErr := mgr.IterateFrom(ptrs[2])
		require.NoError(t, itErr)
		rec, ptr, nextErr := it.Next()
		require.NoError(t, nextErr)
		assert.Equal(t, ptrs[2], ptr)
		assert.Equal(t, recs[2].(*record.DataPageInsertRecord).Row(),
			rec.(*record.DataPageInsertRecord).Row())
	})
}

func TestManagerRotation(t *testing.T) {
	dir := t.TempDir()
	// 段上限压到很小，逼出滚动
	mgr, err := NewManager(dir, 128)
	require.NoError(t, err)
	defer mgr.Close()

	const n = 20
	for i := 0; i < n; i++ {
		_, err = mgr.AppendRecord(insertRecord(uint16(i), "rotation-payload-rotation"))
		require.NoError(t, err)
	}

	t.Run("写满后滚动到新段", func(t *testing.T) {
		assert.True(t, mgr.ActiveSegmentID() > 0)
	})

	t.Run("记录不跨段", func(t *testing.T) {
		// 每段都能独立解析干净说明没有记录被劈开
		recs, ptrs := collectAll(t, mgr)
		require.Len(t, recs, n)

		seen := map[uint64]bool{}
		for _, ptr := range ptrs {
			seen[ptr.SegmentID] = true
		}
		assert.True(t, len(seen) > 1)
	})

	t.Run("旧段转为归档态", func(t *testing.T) {
		seg, segErr := mgr.Segment(0)
		require.NoError(t, segErr)
		assert.Equal(t, common.SegmentArchived, seg.State())
	})

	t.Run("重启后保留全部段", func(t *testing.T) {
		require.NoError(t, mgr.Close())

		reopened, openErr := NewManager(dir, 128)
		require.NoError(t, openErr)
		defer reopened.Close()

		recs, _ := collectAll(t, reopened)
		assert.Len(t, recs, n)
	})
}

func TestManagerTornTail(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, 1<<20)
	require.NoError(t, err)

	var appended []common.WALPointer
	for i := 0; i < 3; i++ {
		ptr, appendErr := mgr.AppendRecord(insertRecord(uint16(i), "durable-row"))
		require.NoError(t, appendErr)
		appended = append(appended, ptr)
	}
	pos, err := mgr.CurrentPosition()
	require.NoError(t, err)
	require.NoError(t, mgr.Close())

	t.Run("末尾截断记录被丢弃", func(t *testing.T) {
		// 模拟崩溃时撕裂写：砍掉最后一条记录的后半截
		path := filepath.Join(dir, segmentFileName(0))
		require.NoError(t, os.Truncate(path, pos.Offset-5))

		reopened, openErr := NewManager(dir, 1<<20)
		require.NoError(t, openErr)
		defer reopened.Close()

		recs, _ := collectAll(t, reopened)
		assert.Len(t, recs, 2)
	})

	t.Run("只剩残缺帧头时同样丢弃", func(t *testing.T) {
		// 第三条记录只留3字节帧头
		path := filepath.Join(dir, segmentFileName(0))
		require.NoError(t, os.Truncate(path, appended[2].Offset+3))

		reopened, openErr := NewManager(dir, 1<<20)
		require.NoError(t, openErr)
		defer reopened.Close()

		recs, _ := collectAll(t, reopened)
		assert.Len(t, recs, 2)
	})
}

func TestManagerCorruptionBeforeTail(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, 1<<20)
	require.NoError(t, err)

	var first common.WALPointer
	for i := 0; i < 3; i++ {
		ptr, appendErr := mgr.AppendRecord(insertRecord(uint16(i), "corruptible"))
		require.NoError(t, appendErr)
		if i == 0 {
			first = ptr
		}
	}
	require.NoError(t, mgr.Close())

	// 翻转第一条记录体中的一个字节，它后面还有完整记录，必须致命
	path := filepath.Join(dir, segmentFileName(0))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[first.Offset+recordFrameHeaderSize+2] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0644))

	reopened, err := NewManager(dir, 1<<20)
	require.NoError(t, err)
	defer reopened.Close()

	it, err := reopened.IterateFrom(common.WALPointer{})
	require.NoError(t, err)
	_, _, err = it.Next()
	assert.True(t, errors.Cause(err) == ErrCorruptedRecord)
}

func TestSegmentLifecycle(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir, 64)
	require.NoError(t, err)
	defer mgr.Close()

	for i := 0; i < 6; i++ {
		_, err = mgr.AppendRecord(insertRecord(uint16(i), "lifecycle"))
		require.NoError(t, err)
	}
	require.True(t, mgr.ActiveSegmentID() > 0)

	t.Run("活跃段拒绝压实", func(t *testing.T) {
		compactErr := mgr.Compact(mgr.ActiveSegmentID())
		assert.True(t, errors.Cause(compactErr) == ErrSegmentActive)
	})

	t.Run("归档段可压实且幂等", func(t *testing.T) {
		require.NoError(t, mgr.Compact(0))
		require.NoError(t, mgr.Compact(0))

		seg, segErr := mgr.Segment(0)
		require.NoError(t, segErr)
		assert.Equal(t, common.SegmentCompacted, seg.State())
	})

	t.Run("未压实的段拒绝删除", func(t *testing.T) {
		removeErr := mgr.Remove(mgr.ActiveSegmentID())
		assert.Error(t, removeErr)
	})

	t.Run("压实后的段可删除", func(t *testing.T) {
		require.NoError(t, mgr.Remove(0))

		_, segErr := mgr.Segment(0)
		assert.True(t, errors.Cause(segErr) == ErrSegmentNotFound)

		exists := true
		if _, statErr := os.Stat(filepath.Join(dir, segmentFileName(0))); os.IsNotExist(statErr) {
			exists = false
		}
		assert.False(t, exists)
	})
}

func TestFileIOClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "io.wal")
	fio, err := OpenFileIO(path)
	require.NoError(t, err)

	_, err = fio.Append([]byte("before close"))
	require.NoError(t, err)
	require.NoError(t, fio.Close())

	_, err = fio.Append([]byte("after close"))
	assert.True(t, errors.Cause(err) == basic.ErrClosed)

	buf := make([]byte, 4)
	_, err = fio.ReadAt(buf, 0)
	assert.True(t, errors.Cause(err) == basic.ErrClosed)

	assert.True(t, errors.Cause(fio.Flush()) == basic.ErrClosed)
}

func TestFileIOAppendFailureKeepsCursor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "io.wal")
	fio, err := OpenFileIO(path)
	require.NoError(t, err)
	f := fio.(*fileIO)

	pos, err := f.Append([]byte("abcd"))
	require.NoError(t, err)
	require.Equal(t, int64(4), pos)

	// 用只读句柄顶替底层文件制造写失败
	good := f.file
	readonly, err := os.Open(path)
	require.NoError(t, err)
	f.file = readonly

	_, err = f.Append([]byte("WXYZ"))
	require.Error(t, err)

	// 失败的追加不推进游标
	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(4), size)

	// 模拟短写在游标之后留下的半截残留
	_, err = good.WriteAt([]byte{0xDE, 0xAD, 0xBE}, 4)
	require.NoError(t, err)

	f.file = good
	require.NoError(t, readonly.Close())

	// 下一次追加从原偏移覆盖残留，此前与此后的数据连续完好
	pos, err = f.Append([]byte("EFGH"))
	require.NoError(t, err)
	require.Equal(t, int64(8), pos)

	buf := make([]byte, 8)
	_, err = f.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "abcdEFGH", string(buf))
	require.NoError(t, f.Close())
}

func TestSegmentIODecorator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deco.wal")
	fio, err := OpenFileIO(path)
	require.NoError(t, err)
	defer fio.Close()

	sio := NewSegmentIO(42, fio)
	assert.Equal(t, uint64(42), sio.SegmentID())
	assert.Equal(t, fio, sio.Delegate())

	t.Run("读写透传到内层", func(t *testing.T) {
		end, appendErr := sio.Append([]byte("pass-through"))
		require.NoError(t, appendErr)
		assert.Equal(t, int64(len("pass-through")), end)

		buf := make([]byte, 4)
		_, readErr := sio.ReadAt(buf, 0)
		require.NoError(t, readErr)
		assert.Equal(t, "pass", string(buf))

		size, sizeErr := sio.Size()
		require.NoError(t, sizeErr)
		assert.Equal(t, end, size)
	})

	t.Run("装饰层可继续叠加", func(t *testing.T) {
		outer := NewFileIODecorator(sio)
		size, sizeErr := outer.Size()
		require.NoError(t, sizeErr)
		assert.Equal(t, int64(len("pass-through")), size)
	})
}
