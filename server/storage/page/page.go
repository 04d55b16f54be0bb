package page

import (
	"github.com/juju/errors"
	"github.com/zhukovaskychina/xgrid-storage/server/common"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/latch"
	"github.com/zhukovaskychina/xgrid-storage/util"
)

// 页面镜像布局（定长，大小在存储生命周期内固定）:
//
//	0:2    magic
//	2:6    groupId
//	6:14   pageId
//	14:16  槽位数
//	16:18  行堆写入位置
//	18:..  行堆，向页尾方向增长
//	..:end 槽位目录，从页尾向前增长，每项6字节: 行偏移(2) + 行长(2) + 事务状态提示(1) + 标志(1)
const (
	pageMagic      uint16 = 0xC947
	pageHeaderSize        = 18
	slotEntrySize         = 6

	offMagic     = 0
	offGroupID   = 2
	offPageID    = 6
	offSlotCount = 14
	offFreePtr   = 16

	flagSlotInUse byte = 0x01
)

// MinPageSize 页头+至少一个槽位
const MinPageSize = pageHeaderSize + slotEntrySize + 16

var (
	// ErrSlotNotFound 增量记录指向的槽位不存在，结构完整性错误
	ErrSlotNotFound = errors.New("page row slot not found")
	// ErrSlotOccupied 目标槽位已有行数据
	ErrSlotOccupied = errors.New("page row slot occupied")
	// ErrPageOverflow 行堆与槽位目录相遇，页面放不下
	ErrPageOverflow = errors.New("page overflow")
	// ErrBadPageImage 页面镜像头损坏
	ErrBadPageImage = errors.New("bad page image")
)

// Page 以(groupId, pageId)寻址的定长页面
// 同页并发修改由闩锁串行化，不同页互不阻塞
type Page struct {
	lt       *latch.Latch
	buf      []byte
	dirty    bool
	boundary common.WALPointer
}

// NewPage 分配零值页面并建立空页结构
func NewPage(groupID uint32, pageID uint64, pageSize int) *Page {
	p := &Page{
		lt:  latch.NewLatch(),
		buf: make([]byte, pageSize),
	}
	p.InitPage(groupID, pageID)
	return p
}

// NewPageFromImage 从检查点镜像恢复页面
func NewPageFromImage(image []byte) (*Page, error) {
	if len(image) < MinPageSize {
		return nil, errors.Annotatef(ErrBadPageImage, "image of %d bytes", len(image))
	}
	_, magic := util.ReadUB2(image, offMagic)
	if magic != pageMagic {
		return nil, errors.Annotatef(ErrBadPageImage, "magic %#x", magic)
	}
	return &Page{
		lt:  latch.NewLatch(),
		buf: append([]byte(nil), image...),
	}, nil
}

// Latch 页面闩锁
func (p *Page) Latch() *latch.Latch {
	return p.lt
}

// InitPage 把镜像重置为结构完整的空页
func (p *Page) InitPage(groupID uint32, pageID uint64) {
	for i := range p.buf {
		p.buf[i] = 0
	}
	util.WriteUB2At(p.buf, offMagic, pageMagic)
	util.WriteUB4At(p.buf, offGroupID, groupID)
	util.WriteUB8At(p.buf, offPageID, pageID)
	util.WriteUB2At(p.buf, offSlotCount, 0)
	util.WriteUB2At(p.buf, offFreePtr, pageHeaderSize)
}

func (p *Page) GroupID() uint32 {
	_, v := util.ReadUB4(p.buf, offGroupID)
	return v
}

func (p *Page) PageID() uint64 {
	_, v := util.ReadUB8(p.buf, offPageID)
	return v
}

// SlotCount 槽位目录长度（含空闲槽位）
func (p *Page) SlotCount() uint16 {
	_, v := util.ReadUB2(p.buf, offSlotCount)
	return v
}

func (p *Page) freePtr() uint16 {
	_, v := util.ReadUB2(p.buf, offFreePtr)
	return v
}

// slotPos 槽位目录项在镜像里的起始位置
func (p *Page) slotPos(itemID uint16) int {
	return len(p.buf) - (int(itemID)+1)*slotEntrySize
}

// InsertRowAt 把行写入槽位，itemID等于槽位数时扩展目录，否则复用空闲槽位
func (p *Page) InsertRowAt(itemID uint16, row []byte) error {
	slotCount := p.SlotCount()
	if itemID > slotCount {
		return errors.Annotatef(ErrSlotNotFound, "insert at slot %d beyond directory of %d", itemID, slotCount)
	}

	newCount := slotCount
	if itemID == slotCount {
		newCount++
	} else {
		pos := p.slotPos(itemID)
		if p.buf[pos+5]&flagSlotInUse != 0 {
			return errors.Annotatef(ErrSlotOccupied, "slot %d", itemID)
		}
	}

	free := int(p.freePtr())
	dirStart := len(p.buf) - int(newCount)*slotEntrySize
	if free+len(row) > dirStart {
		return errors.Annotatef(ErrPageOverflow,
			"row of %d bytes at free ptr %d, directory starts at %d", len(row), free, dirStart)
	}

	copy(p.buf[free:], row)

	pos := p.slotPos(itemID)
	util.WriteUB2At(p.buf, pos, uint16(free))
	util.WriteUB2At(p.buf, pos+2, uint16(len(row)))
	p.buf[pos+4] = byte(common.TxStateAbsent)
	p.buf[pos+5] = flagSlotInUse

	util.WriteUB2At(p.buf, offFreePtr, uint16(free+len(row)))
	if newCount != slotCount {
		util.WriteUB2At(p.buf, offSlotCount, newCount)
	}
	return nil
}

// RemoveRow 释放槽位，行堆空间不回收，itemID保持稳定以便回放
func (p *Page) RemoveRow(itemID uint16) error {
	pos, err := p.usedSlotPos(itemID)
	if err != nil {
		return errors.Trace(err)
	}
	p.buf[pos+4] = byte(common.TxStateAbsent)
	p.buf[pos+5] = 0
	return nil
}

// UpdateTxState 原地改写槽位的MVCC事务状态提示
// 幂等：重复施加同一提示得到同一镜像
func (p *Page) UpdateTxState(itemID uint16, st common.TxState) error {
	if !st.Valid() {
		return errors.Annotatef(ErrBadPageImage, "invalid tx state %d", byte(st))
	}
	pos, err := p.usedSlotPos(itemID)
	if err != nil {
		return errors.Trace(err)
	}
	p.buf[pos+4] = byte(st)
	return nil
}

// RowAt 读取槽位上的行数据副本
func (p *Page) RowAt(itemID uint16) ([]byte, error) {
	pos, err := p.usedSlotPos(itemID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	_, off := util.ReadUB2(p.buf, pos)
	_, length := util.ReadUB2(p.buf, pos+2)
	return append([]byte(nil), p.buf[int(off):int(off)+int(length)]...), nil
}

// TxStateAt 读取槽位的事务状态提示
func (p *Page) TxStateAt(itemID uint16) (common.TxState, error) {
	pos, err := p.usedSlotPos(itemID)
	if err != nil {
		return common.TxStateAbsent, errors.Trace(err)
	}
	return common.TxState(p.buf[pos+4]), nil
}

// usedSlotPos 校验槽位存在且在用
func (p *Page) usedSlotPos(itemID uint16) (int, error) {
	if itemID >= p.SlotCount() {
		return 0, errors.Annotatef(ErrSlotNotFound, "slot %d of %d", itemID, p.SlotCount())
	}
	pos := p.slotPos(itemID)
	if p.buf[pos+5]&flagSlotInUse == 0 {
		return 0, errors.Annotatef(ErrSlotNotFound, "slot %d is free", itemID)
	}
	return pos, nil
}

// Image 页面镜像副本（检查点用）
func (p *Page) Image() []byte {
	return append([]byte(nil), p.buf...)
}

func (p *Page) Dirty() bool {
	return p.dirty
}

func (p *Page) markDirty() {
	p.dirty = true
}

func (p *Page) clearDirty() {
	p.dirty = false
}

// ReplayBoundary 回放边界：物理位置在边界之前的记录已纳入当前镜像
// 回放时只施加位置不小于边界的记录
func (p *Page) ReplayBoundary() common.WALPointer {
	return p.boundary
}

func (p *Page) setReplayBoundary(ptr common.WALPointer) {
	p.boundary = ptr
}
