package comm

// Message block layout.
const (
	MessageMin         = 5
	MessageMax         = 64
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessagePosLen      = 0
	MessagePosSeq      = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessagePayloadMax  = MessageMax - MessageMin
	MessageSeqMask     = 0x0f
	MessageDest        = 0x10
	MessageSync        = 0x7e
)

// Seq is the sequence byte of a block.
type Seq byte

// InitialSeq is the sequence both ends start from.
const InitialSeq = Seq(MessageDest)

// Next calculates the next sequence number.
func (s Seq) Next() Seq {
	return Seq((byte(s)+1)&MessageSeqMask | MessageDest)
}

// IsValid checks if it's a valid sequence number.
func (s Seq) IsValid() bool {
	return byte(s)&^MessageSeqMask == MessageDest
}

// AppendBlock frames content into a block appended to dst.
func AppendBlock(dst []byte, seq Seq, content []byte) ([]byte, error) {
	if len(content) > MessagePayloadMax {
		return dst, ErrBlockTooLarge
	}
	start := len(dst)
	dst = append(dst, byte(len(content)+MessageMin), byte(seq))
	dst = append(dst, content...)
	crc := CRC16(dst[start:])
	return append(dst, byte(crc>>8), byte(crc), MessageSync), nil
}

// frame writes header and trailer around content already placed at
// buf[MessageHeaderSize:] and returns the block length.
func frame(buf []byte, contentLen int, seq Seq) int {
	msglen := contentLen + MessageMin
	buf[MessagePosLen], buf[MessagePosSeq] = byte(msglen), byte(seq)
	crc := CRC16(buf[:msglen-MessageTrailerSize])
	buf[msglen-MessageTrailerCRC] = byte(crc >> 8)
	buf[msglen-MessageTrailerCRC+1] = byte(crc)
	buf[msglen-MessageTrailerSync] = MessageSync
	return msglen
}

// BlockContent returns the content of a validated block.
func BlockContent(block []byte) []byte {
	return block[MessageHeaderSize : len(block)-MessageTrailerSize]
}
