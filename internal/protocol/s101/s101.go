// Package s101 owns the S101 byte framing that carries Glow messages on TCP.
//
// Ownership boundary:
// - byte stuffing and CRC of single packets
// - EmBER packet header and multi-packet split/reassembly
// - keep-alive packets
package s101

import (
	"errors"
)

const (
	BOF       byte = 0xfe
	EOF       byte = 0xff
	CE        byte = 0xfd
	escapeXOR byte = 0x20
	escapeMin byte = 0xf8

	slot        byte = 0x00
	messageType byte = 0x0e
	version     byte = 0x01

	dtdGlow         byte = 0x01
	dtdVersionMinor byte = 0x1f
	dtdVersionMajor byte = 0x02

	crcResidue uint16 = 0xf0b8
)

// Command selects the packet kind.
type Command byte

const (
	CommandEmber             Command = 0x00
	CommandKeepAliveRequest  Command = 0x01
	CommandKeepAliveResponse Command = 0x02
)

func (c Command) String() string {
	switch c {
	case CommandEmber:
		return "ember"
	case CommandKeepAliveRequest:
		return "keepalive.request"
	case CommandKeepAliveResponse:
		return "keepalive.response"
	default:
		return "unknown"
	}
}

// EmBER packet flags.
const (
	FlagFirst  byte = 0x80
	FlagLast   byte = 0x40
	FlagEmpty  byte = 0x20
	FlagSingle      = FlagFirst | FlagLast
)

var (
	ErrInvalidCRC       = errors.New("s101: invalid crc")
	ErrShortFrame       = errors.New("s101: short frame")
	ErrUnexpectedPacket = errors.New("s101: unexpected packet")
	ErrFrameTooLarge    = errors.New("s101: frame too large")
	ErrDanglingEscape   = errors.New("s101: escape before end of frame")
)

// Limits constrains packet and message sizes.
type Limits struct {
	MaxPacketPayload int
	MaxMessageBytes  int
}

func DefaultLimits() Limits {
	return Limits{
		MaxPacketPayload: 1024,
		MaxMessageBytes:  8 * 1024 * 1024,
	}
}

// Packet is one unescaped, CRC-checked S101 frame.
type Packet struct {
	Command Command
	Flags   byte
	Payload []byte
}

// Message is a keep-alive or a reassembled EmBER payload.
type Message struct {
	Command Command
	Payload []byte
}

var crcTable = func() (t [256]uint16) {
	for i := range t {
		c := uint16(i)
		for j := 0; j < 8; j++ {
			if c&1 != 0 {
				c = c>>1 ^ 0x8408
			} else {
				c >>= 1
			}
		}
		t[i] = c
	}
	return t
}()

// crc16 is CRC-16/CCITT, reflected, initial value 0xffff, no final xor.
func crc16(b []byte) uint16 {
	crc := uint16(0xffff)
	for _, x := range b {
		crc = crc>>8 ^ crcTable[byte(crc)^x]
	}
	return crc
}
