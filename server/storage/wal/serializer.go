package wal

import (
	gxbytes "github.com/dubbogo/gost/bytes"
	"github.com/zhukovaskychina/xgrid-storage/util"
)

// 记录帧头: 体长(UB4) + 体校验和(UB4)，记录自描述长度，读侧无需外部索引
const recordFrameHeaderSize = 8

// frameRecord 给记录体加帧，缓冲取自字节池，写盘后必须调用release归还
func frameRecord(body []byte) (frame []byte, release func()) {
	size := recordFrameHeaderSize + len(body)
	bufp := gxbytes.GetBytes(size)
	buf := (*bufp)[:size]

	util.WriteUB4At(buf, 0, uint32(len(body)))
	util.WriteUB4At(buf, 4, util.Checksum32(body))
	copy(buf[recordFrameHeaderSize:], body)

	return buf, func() { gxbytes.PutBytes(bufp) }
}

// parseFrameHeader 解出体长与校验和
func parseFrameHeader(hdr []byte) (bodyLen uint32, crc uint32) {
	_, bodyLen = util.ReadUB4(hdr, 0)
	_, crc = util.ReadUB4(hdr, 4)
	return bodyLen, crc
}
