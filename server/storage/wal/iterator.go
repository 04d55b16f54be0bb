package wal

import (
	"io"

	"github.com/juju/errors"
	"github.com/zhukovaskychina/xgrid-storage/logger"
	"github.com/zhukovaskychina/xgrid-storage/server/common"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/basic"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/record"
	"github.com/zhukovaskychina/xgrid-storage/util"
)

// ErrCorruptedRecord 日志尾部之前的记录损坏，属致命完整性错误
// 静默跳过会让重建出的页面偏离真实状态，必须上抛
var ErrCorruptedRecord = errors.New("corrupted wal record")

// Iterator 按(段号, 偏移)升序产出记录，到日志末尾返回io.EOF
// 活跃段末尾的残缺记录视作崩溃时的撕裂写，丢弃而非报错
type Iterator struct {
	mgr    *Manager
	ids    []uint64 // 待遍历段号，升序，ids[0]为当前段
	offset int64
}

// Next 产出下一条记录及其物理位置
func (it *Iterator) Next() (basic.Record, common.WALPointer, error) {
	for {
		if len(it.ids) == 0 {
			return nil, common.WALPointer{}, io.EOF
		}

		segID := it.ids[0]
		seg, err := it.mgr.Segment(segID)
		if err != nil {
			return nil, common.WALPointer{}, errors.Trace(err)
		}
		size, err := seg.Size()
		if err != nil {
			return nil, common.WALPointer{}, errors.Trace(err)
		}

		if it.offset >= size {
			it.advance()
			continue
		}

		isTail := len(it.ids) == 1
		remaining := size - it.offset

		if remaining < recordFrameHeaderSize {
			if isTail {
				logger.Infof("丢弃段 %d 末尾 %d 字节残缺帧头", segID, remaining)
				return nil, common.WALPointer{}, io.EOF
			}
			return nil, common.WALPointer{}, errors.Annotatef(ErrCorruptedRecord,
				"segment %d has %d trailing bytes before segment %d", segID, remaining, it.ids[1])
		}

		hdr := make([]byte, recordFrameHeaderSize)
		if _, err := seg.IO().ReadAt(hdr, it.offset); err != nil {
			return nil, common.WALPointer{}, errors.Annotatef(err, "read frame header at %d/%d", segID, it.offset)
		}
		bodyLen, crc := parseFrameHeader(hdr)

		if int64(bodyLen) > remaining-recordFrameHeaderSize {
			if isTail {
				logger.Infof("丢弃段 %d 偏移 %d 处的撕裂记录: 声明 %d 字节, 剩余 %d 字节",
					segID, it.offset, bodyLen, remaining-recordFrameHeaderSize)
				return nil, common.WALPointer{}, io.EOF
			}
			return nil, common.WALPointer{}, errors.Annotatef(ErrCorruptedRecord,
				"segment %d record at %d overruns segment end", segID, it.offset)
		}

		body := make([]byte, bodyLen)
		if _, err := seg.IO().ReadAt(body, it.offset+recordFrameHeaderSize); err != nil {
			return nil, common.WALPointer{}, errors.Annotatef(err, "read record body at %d/%d", segID, it.offset)
		}

		if util.Checksum32(body) != crc {
			// 校验失败的记录恰好顶到文件末尾时无法与撕裂写区分，按撕裂写处理
			if isTail && it.offset+recordFrameHeaderSize+int64(bodyLen) == size {
				logger.Infof("丢弃段 %d 偏移 %d 处校验失败的末尾记录", segID, it.offset)
				return nil, common.WALPointer{}, io.EOF
			}
			return nil, common.WALPointer{}, errors.Annotatef(ErrCorruptedRecord,
				"segment %d record at %d checksum mismatch", segID, it.offset)
		}

		rec, err := record.UnmarshalRecord(body)
		if err != nil {
			return nil, common.WALPointer{}, errors.Annotatef(ErrCorruptedRecord,
				"segment %d record at %d: %v", segID, it.offset, err)
		}

		ptr := common.WALPointer{SegmentID: segID, Offset: it.offset}
		it.offset += recordFrameHeaderSize + int64(bodyLen)
		return rec, ptr, nil
	}
}

func (it *Iterator) advance() {
	it.ids = it.ids[1:]
	it.offset = 0
}
