// Package comm provides L0 protocol support.
package comm

// L0 protocol is communicated between the management MCU firmware and
// its host over a byte channel (uart, pty, tcp, websocket or MQTT).
//
// Bytes are grouped into message blocks:
//
//	<len> <seq> <content...> <crc16 hi> <crc16 lo> <0x7e>
//
// where len covers the whole block (5 to 64 bytes), seq is 0x10 plus a
// 4-bit counter, and the CRC is computed over everything before the
// trailer. Content is a sequence of messages, each a VLQ encoded
// message id followed by VLQ encoded integer parameters or length
// prefixed byte strings, as described by the message format string.
//
// The MCU acknowledges each block with an empty block carrying the
// next sequence it expects. A block with an unexpected sequence is
// discarded and answered with the same acknowledgement, which the
// host treats as a NAK.
//
// Producer: host
// Consumer: MCU firmware
