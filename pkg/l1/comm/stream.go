package comm

// Stream presents a packet transport as a byte stream. Each Write
// becomes one packet; packets are read back as contiguous bytes.
type Stream struct {
	Packets PacketReadWriteCloser

	pending []byte
}

// NewStream creates a Stream.
func NewStream(p PacketReadWriteCloser) *Stream {
	return &Stream{Packets: p}
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	for len(s.pending) == 0 {
		pkt, err := s.Packets.ReadPacket()
		if err != nil {
			return 0, err
		}
		s.pending = pkt
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Write implements io.Writer.
func (s *Stream) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	pkt := make([]byte, len(p))
	copy(pkt, p)
	if err := s.Packets.WritePacket(pkt); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close implements io.Closer.
func (s *Stream) Close() error {
	return s.Packets.Close()
}
