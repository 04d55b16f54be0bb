package wal

import (
	"github.com/zhukovaskychina/xgrid-storage/server/storage/basic"
)

// FileIODecorator 段文件行为装饰器的公共底座
// 逐层叠加新行为（段标识、校验、压缩），内层实现无需感知
type FileIODecorator struct {
	delegate basic.FileIO
}

func NewFileIODecorator(delegate basic.FileIO) *FileIODecorator {
	return &FileIODecorator{delegate: delegate}
}

func (d *FileIODecorator) Append(p []byte) (int64, error) {
	return d.delegate.Append(p)
}

func (d *FileIODecorator) ReadAt(p []byte, off int64) (int, error) {
	return d.delegate.ReadAt(p, off)
}

func (d *FileIODecorator) Flush() error {
	return d.delegate.Flush()
}

func (d *FileIODecorator) Close() error {
	return d.delegate.Close()
}

func (d *FileIODecorator) Size() (int64, error) {
	return d.delegate.Size()
}

// Delegate 内层实现，供再包一层时使用
func (d *FileIODecorator) Delegate() basic.FileIO {
	return d.delegate
}

// SegmentIO 在字节级读写之上叠加段标识的装饰层
type SegmentIO struct {
	*FileIODecorator
	segmentID uint64
}

func NewSegmentIO(segmentID uint64, delegate basic.FileIO) *SegmentIO {
	return &SegmentIO{
		FileIODecorator: NewFileIODecorator(delegate),
		segmentID:       segmentID,
	}
}

// SegmentID 段号
func (s *SegmentIO) SegmentID() uint64 {
	return s.segmentID
}
