package comm

// AppendInt appends v using the variable length encoding: 7 bits per
// byte, most significant first, with bit 7 set on all but the last
// byte. Small negative values (as int32) stay short.
func AppendInt(dst []byte, v uint32) []byte {
	n := IntSize(v)
	for i := n - 1; i > 0; i-- {
		dst = append(dst, byte(v>>(7*uint(i)))&0x7f|0x80)
	}
	return append(dst, byte(v)&0x7f)
}

// IntSize returns the encoded length of v.
func IntSize(v uint32) int {
	sv := int32(v)
	switch {
	case sv < 3<<5 && sv >= -(1<<5):
		return 1
	case sv < 3<<12 && sv >= -(1<<12):
		return 2
	case sv < 3<<19 && sv >= -(1<<19):
		return 3
	case sv < 3<<26 && sv >= -(1<<26):
		return 4
	}
	return 5
}

// ParseInt decodes one integer from buf, returning the value and the
// number of bytes consumed.
func ParseInt(buf []byte) (uint32, int, error) {
	if len(buf) == 0 {
		return 0, 0, ErrShortData
	}
	c := buf[0]
	v := uint32(c & 0x7f)
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1f)
	}
	n := 1
	for c&0x80 != 0 {
		if n >= 5 {
			return 0, n, ErrBadVLQ
		}
		if n >= len(buf) {
			return 0, n, ErrShortData
		}
		c = buf[n]
		n++
		v = v<<7 | uint32(c&0x7f)
	}
	return v, n, nil
}
