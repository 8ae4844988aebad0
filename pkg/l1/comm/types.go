// Package comm carries the serial line of an MCU over packet
// transports.
package comm

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// PacketReadWriteCloser is a PacketReadWriter which can be closed.
type PacketReadWriteCloser interface {
	PacketReadWriter
	Close() error
}
