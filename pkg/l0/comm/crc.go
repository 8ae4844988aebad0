package comm

// CRC16 is the CRC-16/CCITT variant used by message blocks
// (reflected, initial value 0xffff, no final xor).
func CRC16(buf []byte) uint16 {
	crc := uint16(0xffff)
	for _, b := range buf {
		data := b ^ byte(crc)
		data ^= data << 4
		crc = (uint16(data)<<8 | crc>>8) ^ uint16(data>>4) ^ uint16(data)<<3
	}
	return crc
}
