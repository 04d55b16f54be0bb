package wal

import (
	"os"
	"sync"

	"github.com/juju/errors"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/basic"
)

// fileIO os.File支撑的段文件读写实现
// 追加游标由自身维护，定位读不经过游标
type fileIO struct {
	mu     sync.Mutex
	file   *os.File
	path   string
	pos    int64 // 追加游标 = 当前文件末尾
	closed bool
}

// OpenFileIO 打开（或创建）一个段文件，追加游标定位到文件末尾
func OpenFileIO(path string) (basic.FileIO, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Annotatef(err, "open segment file %s", path)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Annotatef(err, "stat segment file %s", path)
	}

	return &fileIO{
		file: file,
		path: path,
		pos:  stat.Size(),
	}, nil
}

func (f *fileIO) Append(p []byte) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, errors.Annotatef(basic.ErrClosed, "append to %s", f.path)
	}

	n, err := f.file.WriteAt(p, f.pos)
	if err != nil {
		// 写失败时游标停在原处，下一次追加从这里重写
		// 半截残留若不截掉，会挡在后续完整记录之前污染回放
		if n > 0 {
			_ = f.file.Truncate(f.pos)
		}
		return f.pos, errors.Annotatef(err, "append %d bytes to %s", len(p), f.path)
	}
	f.pos += int64(n)
	return f.pos, nil
}

func (f *fileIO) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return 0, errors.Annotatef(basic.ErrClosed, "read %s", f.path)
	}
	file := f.file
	f.mu.Unlock()

	// os.File.ReadAt 本身并发安全，读不阻塞追加
	n, err := file.ReadAt(p, off)
	if err != nil {
		return n, err
	}
	return n, nil
}

func (f *fileIO) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return errors.Annotatef(basic.ErrClosed, "flush %s", f.path)
	}
	return errors.Annotatef(f.file.Sync(), "fsync %s", f.path)
}

func (f *fileIO) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return errors.Annotatef(basic.ErrClosed, "close %s", f.path)
	}
	f.closed = true
	return errors.Annotatef(f.file.Close(), "close %s", f.path)
}

func (f *fileIO) Size() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, errors.Annotatef(basic.ErrClosed, "size of %s", f.path)
	}
	return f.pos, nil
}
