package s101

import "io"

func escape(dst []byte, b byte) []byte {
	if b >= escapeMin {
		return append(dst, CE, b^escapeXOR)
	}
	return append(dst, b)
}

// EncodePacket frames one packet: BOF, escaped body and CRC, EOF.
func EncodePacket(p Packet) []byte {
	body := []byte{slot, messageType, byte(p.Command), version}
	if p.Command == CommandEmber {
		body = append(body, p.Flags, dtdGlow, 2, dtdVersionMinor, dtdVersionMajor)
		body = append(body, p.Payload...)
	}
	crc := ^crc16(body)
	body = append(body, byte(crc), byte(crc>>8))

	out := make([]byte, 0, len(body)+len(body)/8+2)
	out = append(out, BOF)
	for _, b := range body {
		out = escape(out, b)
	}
	return append(out, EOF)
}

// EncodeMessage splits payload into EmBER packets of at most
// limits.MaxPacketPayload bytes and frames each of them.
func EncodeMessage(payload []byte, limits Limits) ([][]byte, error) {
	if limits.MaxMessageBytes > 0 && len(payload) > limits.MaxMessageBytes {
		return nil, ErrFrameTooLarge
	}
	size := limits.MaxPacketPayload
	if size <= 0 {
		size = DefaultLimits().MaxPacketPayload
	}
	if len(payload) <= size {
		return [][]byte{EncodePacket(Packet{Command: CommandEmber, Flags: FlagSingle, Payload: payload})}, nil
	}
	var frames [][]byte
	for off := 0; off < len(payload); off += size {
		end := min(off+size, len(payload))
		var flags byte
		if off == 0 {
			flags = FlagFirst
		}
		if end == len(payload) {
			flags |= FlagLast
		}
		frames = append(frames, EncodePacket(Packet{Command: CommandEmber, Flags: flags, Payload: payload[off:end]}))
	}
	return frames, nil
}

// WriteMessage frames payload and writes every packet to w.
func WriteMessage(w io.Writer, payload []byte, limits Limits) error {
	frames, err := EncodeMessage(payload, limits)
	if err != nil {
		return err
	}
	for _, f := range frames {
		if _, err := w.Write(f); err != nil {
			return err
		}
	}
	return nil
}

// WriteKeepAlive writes a keep-alive request or response.
func WriteKeepAlive(w io.Writer, cmd Command) error {
	_, err := w.Write(EncodePacket(Packet{Command: cmd}))
	return err
}
