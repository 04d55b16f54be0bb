package util

func WriteByte(buf []byte, b byte) []byte {
	buf = append(buf, b)
	return buf
}

func WriteBytes(buf []byte, from []byte) []byte {
	buf = append(buf, from...)
	return buf
}

func WriteUB2(buf []byte, i uint16) []byte {
	buf = append(buf, byte(i&0xFF))
	buf = append(buf, byte((i>>8)&0xFF))
	return buf
}

func WriteUB4(buf []byte, i uint32) []byte {
	buf = append(buf, byte(i&0xFF))
	buf = append(buf, byte((i>>8)&0xFF))
	buf = append(buf, byte((i>>16)&0xFF))
	buf = append(buf, byte((i>>24)&0xFF))
	return buf
}

func WriteUB8(buf []byte, i uint64) []byte {
	buf = append(buf, byte(i&0xFF))
	buf = append(buf, byte((i>>8)&0xFF))
	buf = append(buf, byte((i>>16)&0xFF))
	buf = append(buf, byte((i>>24)&0xFF))
	buf = append(buf, byte((i>>32)&0xFF))
	buf = append(buf, byte((i>>40)&0xFF))
	buf = append(buf, byte((i>>48)&0xFF))
	buf = append(buf, byte((i>>56)&0xFF))
	return buf
}

// WriteUB2At 原地写入，不扩展切片，页面内定长字段使用
func WriteUB2At(buf []byte, pos int, i uint16) {
	buf[pos] = byte(i & 0xFF)
	buf[pos+1] = byte((i >> 8) & 0xFF)
}

func WriteUB4At(buf []byte, pos int, i uint32) {
	buf[pos] = byte(i & 0xFF)
	buf[pos+1] = byte((i >> 8) & 0xFF)
	buf[pos+2] = byte((i >> 16) & 0xFF)
	buf[pos+3] = byte((i >> 24) & 0xFF)
}

func WriteUB8At(buf []byte, pos int, i uint64) {
	buf[pos] = byte(i & 0xFF)
	buf[pos+1] = byte((i >> 8) & 0xFF)
	buf[pos+2] = byte((i >> 16) & 0xFF)
	buf[pos+3] = byte((i >> 24) & 0xFF)
	buf[pos+4] = byte((i >> 32) & 0xFF)
	buf[pos+5] = byte((i >> 40) & 0xFF)
	buf[pos+6] = byte((i >> 48) & 0xFF)
	buf[pos+7] = byte((i >> 56) & 0xFF)
}

// WriteWithLength 写UB4长度前缀再写内容
func WriteWithLength(buf []byte, from []byte) []byte {
	buf = WriteUB4(buf, uint32(len(from)))
	buf = WriteBytes(buf, from)
	return buf
}
