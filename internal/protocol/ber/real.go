package ber

import (
	"fmt"
	"math"
	"math/bits"
)

// Special single-byte real contents.
const (
	realPlusInfinity  byte = 0x40
	realMinusInfinity byte = 0x41
	realNaN           byte = 0x42
	realMinusZero     byte = 0x43
)

const (
	realBinary       byte   = 0x80
	realSign         byte   = 0x40
	realBaseMask     byte   = 0x30
	realShiftMask    byte   = 0x0c
	realExpLenMask   byte   = 0x03
	fractionMask     uint64 = 0x000fffffffffffff
	implicitBit      uint64 = 0x0010000000000000
	exponentBias            = 1023
	minNormalExp            = -1022
	maxNormalExp            = 1023
	significandWidth        = 52
)

// encodeReal writes the preamble, the unbiased exponent and the significand
// with its leading bit made explicit and trailing zero bits dropped.
func encodeReal(v float64) []byte {
	switch {
	case v == 0 && !math.Signbit(v):
		return nil
	case v == 0:
		return []byte{realMinusZero}
	case math.IsInf(v, 1):
		return []byte{realPlusInfinity}
	case math.IsInf(v, -1):
		return []byte{realMinusInfinity}
	case math.IsNaN(v):
		return []byte{realNaN}
	}

	raw := math.Float64bits(v)
	biased := int64(raw>>significandWidth) & 0x7ff
	var exponent int64
	var significand uint64
	if biased == 0 {
		// subnormal: normalize so the leading one sits at the implicit bit
		significand = raw & fractionMask
		exponent = minNormalExp
		for significand&implicitBit == 0 {
			significand <<= 1
			exponent--
		}
	} else {
		significand = raw&fractionMask | implicitBit
		exponent = biased - exponentBias
	}
	for significand&0xff == 0 {
		significand >>= 8
	}
	for significand&0x01 == 0 {
		significand >>= 1
	}

	exp := encodeInt(exponent)
	sig := encodeUnsigned(significand)
	preamble := realBinary | byte(len(exp)-1)&realExpLenMask
	if math.Signbit(v) {
		preamble |= realSign
	}
	out := make([]byte, 0, 1+len(exp)+len(sig))
	out = append(out, preamble)
	out = append(out, exp...)
	return append(out, sig...)
}

func decodeReal(b []byte) (float64, error) {
	if len(b) == 0 {
		return 0, nil
	}
	preamble := b[0]
	if preamble&realBinary == 0 {
		if len(b) != 1 {
			return 0, fmt.Errorf("%w: special value with %d bytes", ErrInvalidReal, len(b))
		}
		switch preamble {
		case realPlusInfinity:
			return math.Inf(1), nil
		case realMinusInfinity:
			return math.Inf(-1), nil
		case realNaN:
			return math.NaN(), nil
		case realMinusZero:
			return math.Copysign(0, -1), nil
		default:
			return 0, fmt.Errorf("%w: preamble 0x%02x", ErrInvalidReal, preamble)
		}
	}
	if preamble&realBaseMask != 0 {
		return 0, fmt.Errorf("%w: only base 2 is supported", ErrInvalidReal)
	}
	expLen := int(preamble&realExpLenMask) + 1
	shift := uint((preamble & realShiftMask) >> 2)
	if len(b) < 1+expLen+1 {
		return 0, fmt.Errorf("%w: real needs %d exponent bytes and a significand, have %d bytes", ErrTruncated, expLen, len(b)-1)
	}
	exponent := int64(int8(b[1]))
	for _, c := range b[2 : 1+expLen] {
		exponent = exponent<<8 | int64(c)
	}
	sigBytes := b[1+expLen:]
	if len(sigBytes) > 8 {
		return 0, fmt.Errorf("%w: significand of %d bytes", ErrInvalidReal, len(sigBytes))
	}
	var significand uint64
	for _, c := range sigBytes {
		significand = significand<<8 | uint64(c)
	}
	if significand == 0 {
		return 0, fmt.Errorf("%w: zero significand", ErrInvalidReal)
	}
	if bits.Len64(significand)+int(shift) > significandWidth+1 {
		return 0, fmt.Errorf("%w: significand wider than 53 bits", ErrInvalidReal)
	}
	significand <<= shift
	significand <<= uint(significandWidth + 1 - bits.Len64(significand))

	if exponent > maxNormalExp {
		return 0, fmt.Errorf("%w: exponent %d", ErrRealOutOfRange, exponent)
	}
	var raw uint64
	if exponent < minNormalExp {
		drop := minNormalExp - exponent
		if drop > significandWidth || significand&(1<<uint(drop)-1) != 0 {
			return 0, fmt.Errorf("%w: exponent %d", ErrRealOutOfRange, exponent)
		}
		raw = significand >> uint(drop)
	} else {
		raw = uint64(exponent+exponentBias)<<significandWidth | significand&fractionMask
	}
	if preamble&realSign != 0 {
		raw |= 1 << 63
	}
	return math.Float64frombits(raw), nil
}

func encodeUnsigned(v uint64) []byte {
	n := (bits.Len64(v) + 7) / 8
	if n == 0 {
		n = 1
	}
	out := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}
