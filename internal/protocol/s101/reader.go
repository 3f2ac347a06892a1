package s101

import (
	"bufio"
	"fmt"
	"io"
)

// Reader pulls packets off a byte stream and reassembles EmBER messages.
type Reader struct {
	r         *bufio.Reader
	limits    Limits
	partial   []byte
	inMessage bool
}

func NewReader(r io.Reader, limits Limits) *Reader {
	return &Reader{r: bufio.NewReader(r), limits: limits}
}

// ReadPacket skips to the next BOF and returns the following frame.
func (r *Reader) ReadPacket() (Packet, error) {
	for {
		b, err := r.r.ReadByte()
		if err != nil {
			return Packet{}, err
		}
		if b == BOF {
			break
		}
	}
	maxFrame := r.limits.MaxPacketPayload + 16
	if r.limits.MaxPacketPayload <= 0 {
		maxFrame = DefaultLimits().MaxPacketPayload + 16
	}
	var body []byte
	escaped := false
	for {
		b, err := r.r.ReadByte()
		if err != nil {
			return Packet{}, err
		}
		switch {
		case b == EOF:
			if escaped {
				return Packet{}, ErrDanglingEscape
			}
			return parsePacket(body)
		case b == BOF:
			// a new frame restarts the read
			body = body[:0]
			escaped = false
		case b == CE:
			escaped = true
		case escaped:
			body = append(body, b^escapeXOR)
			escaped = false
		default:
			body = append(body, b)
		}
		if len(body) > maxFrame {
			return Packet{}, ErrFrameTooLarge
		}
	}
}

// DecodePacket parses one complete framed packet, BOF and EOF included.
func DecodePacket(frame []byte) (Packet, error) {
	if len(frame) < 2 || frame[0] != BOF || frame[len(frame)-1] != EOF {
		return Packet{}, ErrShortFrame
	}
	body := make([]byte, 0, len(frame))
	escaped := false
	for _, b := range frame[1 : len(frame)-1] {
		switch {
		case b == CE:
			escaped = true
		case escaped:
			body = append(body, b^escapeXOR)
			escaped = false
		default:
			body = append(body, b)
		}
	}
	if escaped {
		return Packet{}, ErrDanglingEscape
	}
	return parsePacket(body)
}

func parsePacket(body []byte) (Packet, error) {
	if len(body) < 6 {
		return Packet{}, ErrShortFrame
	}
	if crc16(body) != crcResidue {
		return Packet{}, ErrInvalidCRC
	}
	body = body[:len(body)-2]
	if body[1] != messageType || body[3] != version {
		return Packet{}, fmt.Errorf("%w: message 0x%02x version 0x%02x", ErrUnexpectedPacket, body[1], body[3])
	}
	p := Packet{Command: Command(body[2])}
	switch p.Command {
	case CommandKeepAliveRequest, CommandKeepAliveResponse:
		return p, nil
	case CommandEmber:
	default:
		return Packet{}, fmt.Errorf("%w: command 0x%02x", ErrUnexpectedPacket, body[2])
	}
	if len(body) < 7 {
		return Packet{}, ErrShortFrame
	}
	p.Flags = body[4]
	appBytes := int(body[6])
	start := 7 + appBytes
	if len(body) < start {
		return Packet{}, ErrShortFrame
	}
	if body[5] != dtdGlow {
		return Packet{}, fmt.Errorf("%w: dtd 0x%02x", ErrUnexpectedPacket, body[5])
	}
	p.Payload = body[start:]
	return p, nil
}

// ReadMessage returns the next keep-alive or complete EmBER message.
func (r *Reader) ReadMessage() (Message, error) {
	for {
		p, err := r.ReadPacket()
		if err != nil {
			return Message{}, err
		}
		if p.Command != CommandEmber {
			return Message{Command: p.Command}, nil
		}
		msg, done, err := r.assemble(p)
		if err != nil {
			return Message{}, err
		}
		if done {
			return msg, nil
		}
	}
}

func (r *Reader) assemble(p Packet) (Message, bool, error) {
	if p.Flags&FlagFirst != 0 {
		r.partial = r.partial[:0]
		r.inMessage = true
	} else if !r.inMessage {
		return Message{}, false, fmt.Errorf("%w: continuation without first packet", ErrUnexpectedPacket)
	}
	if p.Flags&FlagEmpty == 0 {
		r.partial = append(r.partial, p.Payload...)
	}
	if r.limits.MaxMessageBytes > 0 && len(r.partial) > r.limits.MaxMessageBytes {
		r.inMessage = false
		r.partial = nil
		return Message{}, false, ErrFrameTooLarge
	}
	if p.Flags&FlagLast == 0 {
		return Message{}, false, nil
	}
	r.inMessage = false
	payload := make([]byte, len(r.partial))
	copy(payload, r.partial)
	return Message{Command: CommandEmber, Payload: payload}, true, nil
}
