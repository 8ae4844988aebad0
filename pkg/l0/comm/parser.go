package comm

import "bytes"

// FindResult is the outcome of one FindBlock step.
type FindResult int

const (
	// NeedMore means no complete block is buffered yet; pop is 0.
	NeedMore FindResult = iota
	// Found means a valid block of pop bytes starts the buffer.
	Found
	// Discard means pop bytes at the front are garbage or a block
	// that must be dropped.
	Discard
)

// Parser locates message blocks in a byte stream and keeps the
// resynchronization state across calls.
type Parser struct {
	// VerifySeq enables the receiving side sequence check. Blocks with
	// an unexpected sequence are discarded and NAKed.
	VerifySeq bool

	next      Seq
	needSync  bool
	needValid bool
}

// NewParser creates a Parser for the MCU end, verifying sequences.
func NewParser() *Parser {
	return &Parser{VerifySeq: true, next: InitialSeq}
}

// NextSeq is the sequence expected in the next block; it is also the
// sequence stamped on outgoing blocks.
func (p *Parser) NextSeq() Seq {
	if !p.next.IsValid() {
		return InitialSeq
	}
	return p.next
}

// FindBlock inspects the front of buf. The nak result asks the caller
// to send an acknowledgement carrying NextSeq so the peer retransmits.
func (p *Parser) FindBlock(buf []byte) (res FindResult, pop int, nak bool) {
	if len(buf) > 0 && p.needSync {
		return p.resync(buf)
	}
	if len(buf) < MessageMin {
		return NeedMore, 0, false
	}
	msglen := int(buf[MessagePosLen])
	if msglen < MessageMin || msglen > MessageMax {
		return p.fail(buf)
	}
	seq := Seq(buf[MessagePosSeq])
	if !seq.IsValid() {
		return p.fail(buf)
	}
	if len(buf) < msglen {
		return NeedMore, 0, false
	}
	if buf[msglen-MessageTrailerSync] != MessageSync {
		return p.fail(buf)
	}
	crc := uint16(buf[msglen-MessageTrailerCRC])<<8 | uint16(buf[msglen-MessageTrailerCRC+1])
	if CRC16(buf[:msglen-MessageTrailerSize]) != crc {
		return p.fail(buf)
	}
	p.needValid = false
	if p.VerifySeq {
		if seq != p.NextSeq() {
			// lost block: drop everything until it is retransmitted
			return Discard, msglen, true
		}
		p.next = seq.Next()
	}
	return Found, msglen, false
}

// Reset returns the parser to its initial state.
func (p *Parser) Reset() {
	p.next, p.needSync, p.needValid = InitialSeq, false, false
}

func (p *Parser) fail(buf []byte) (FindResult, int, bool) {
	if buf[0] == MessageSync {
		// leading sync bytes are skipped quietly
		return Discard, 1, false
	}
	p.needSync = true
	return p.resync(buf)
}

func (p *Parser) resync(buf []byte) (FindResult, int, bool) {
	pop := len(buf)
	if pos := bytes.IndexByte(buf, MessageSync); pos >= 0 {
		p.needSync = false
		pop = pos + 1
	}
	if p.needValid {
		return Discard, pop, false
	}
	p.needValid = true
	return Discard, pop, p.VerifySeq
}
