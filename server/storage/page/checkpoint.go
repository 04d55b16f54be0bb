package page

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/juju/errors"
	"github.com/zhukovaskychina/xgrid-storage/server/common"
	"github.com/zhukovaskychina/xgrid-storage/util"
)

// 检查点快照文件头魔数 "XGCP"
var checkpointMagic = []byte{0x58, 0x47, 0x43, 0x50}

// 快照文件头: magic(4) + method(1) + level(1) + 段号(8) + 段内偏移(8) + 原始镜像长度(4)
const checkpointHeaderSize = 4 + 1 + 1 + 8 + 8 + 4

// ErrBadCheckpoint 快照文件损坏
var ErrBadCheckpoint = errors.New("bad checkpoint snapshot")

const checkpointFileSuffix = ".ckpt"

// checkpointFileName 快照文件按页面标识命名
func checkpointFileName(groupID uint32, pageID uint64) string {
	return fmt.Sprintf("%08x-%016x%s", groupID, pageID, checkpointFileSuffix)
}

// parseCheckpointFileName 从文件名还原页面标识
func parseCheckpointFileName(name string) (groupID uint32, pageID uint64, ok bool) {
	if !strings.HasSuffix(name, checkpointFileSuffix) {
		return 0, 0, false
	}
	base := strings.TrimSuffix(name, checkpointFileSuffix)
	if len(base) != 8+1+16 || base[8] != '-' {
		return 0, 0, false
	}
	g, err := strconv.ParseUint(base[:8], 16, 32)
	if err != nil {
		return 0, 0, false
	}
	p, err := strconv.ParseUint(base[9:], 16, 64)
	if err != nil {
		return 0, 0, false
	}
	return uint32(g), p, true
}

// encodeCheckpoint 编码页面快照：压缩镜像并带上回放边界位置
func encodeCheckpoint(method, level uint8, image []byte, ptr common.WALPointer) ([]byte, error) {
	compressed, err := compressImage(method, level, image)
	if err != nil {
		return nil, errors.Trace(err)
	}

	buf := make([]byte, 0, checkpointHeaderSize+len(compressed))
	buf = util.WriteBytes(buf, checkpointMagic)
	buf = util.WriteByte(buf, method)
	buf = util.WriteByte(buf, level)
	buf = util.WriteUB8(buf, ptr.SegmentID)
	buf = util.WriteUB8(buf, uint64(ptr.Offset))
	buf = util.WriteUB4(buf, uint32(len(image)))
	buf = util.WriteBytes(buf, compressed)
	return buf, nil
}

// decodeCheckpoint 解码页面快照
func decodeCheckpoint(data []byte) ([]byte, common.WALPointer, error) {
	if len(data) < checkpointHeaderSize {
		return nil, common.WALPointer{}, errors.Annotatef(ErrBadCheckpoint, "snapshot of %d bytes", len(data))
	}
	if !bytes.Equal(data[:4], checkpointMagic) {
		return nil, common.WALPointer{}, errors.Annotatef(ErrBadCheckpoint, "magic %x", data[:4])
	}

	cursor, method := util.ReadByte(data, 4)
	cursor, _ = util.ReadByte(data, cursor) // level只写不读
	cursor, segID := util.ReadUB8(data, cursor)
	cursor, off := util.ReadUB8(data, cursor)
	cursor, rawLen := util.ReadUB4(data, cursor)

	image, err := decompressImage(method, data[cursor:], int(rawLen))
	if err != nil {
		return nil, common.WALPointer{}, errors.Annotatef(ErrBadCheckpoint, "decompress: %v", err)
	}
	if len(image) != int(rawLen) {
		return nil, common.WALPointer{}, errors.Annotatef(ErrBadCheckpoint,
			"image length %d, header declares %d", len(image), rawLen)
	}

	return image, common.WALPointer{SegmentID: segID, Offset: int64(off)}, nil
}

// 检查点标记文件魔数 "XGMK"
var checkpointMarkMagic = []byte{0x58, 0x47, 0x4D, 0x4B}

// 标记文件: magic(4) + 段号(8) + 段内偏移(8)
const checkpointMarkFile = "checkpoint.mark"

func encodeCheckpointMark(ptr common.WALPointer) []byte {
	buf := make([]byte, 0, 4+8+8)
	buf = util.WriteBytes(buf, checkpointMarkMagic)
	buf = util.WriteUB8(buf, ptr.SegmentID)
	buf = util.WriteUB8(buf, uint64(ptr.Offset))
	return buf
}

func decodeCheckpointMark(data []byte) (common.WALPointer, bool) {
	if len(data) != 4+8+8 || !bytes.Equal(data[:4], checkpointMarkMagic) {
		return common.WALPointer{}, false
	}
	cursor, segID := util.ReadUB8(data, 4)
	_, off := util.ReadUB8(data, cursor)
	return common.WALPointer{SegmentID: segID, Offset: int64(off)}, true
}

// cachedSnapshot 镜像与它覆盖到的回放边界
type cachedSnapshot struct {
	image []byte
	ptr   common.WALPointer
}

// imageCache 最近一次快照的直写缓存，恢复时优先命中内存
type imageCache struct {
	mu        sync.RWMutex
	snapshots map[pageKey]cachedSnapshot
}

func newImageCache() *imageCache {
	return &imageCache{snapshots: make(map[pageKey]cachedSnapshot)}
}

func (c *imageCache) put(key pageKey, snap cachedSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[key] = snap
}

func (c *imageCache) get(key pageKey) (cachedSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.snapshots[key]
	return snap, ok
}
