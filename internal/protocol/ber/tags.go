package ber

// Universal tags.
const (
	TagBoolean     byte = 0x01
	TagInteger     byte = 0x02
	TagOctetString byte = 0x04
	TagNull        byte = 0x05
	TagReal        byte = 0x09
	TagUTF8String  byte = 0x0c
	TagRelativeOID byte = 0x0d
	TagSequence    byte = 0x30
	TagSet         byte = 0x31
)

const (
	classUniversal   byte = 0x00
	classApplication byte = 0x40
	classContext     byte = 0x80
	constructed      byte = 0x20
	tagNumberMask    byte = 0x1f
)

// Application returns the constructed APPLICATION-class tag for n.
func Application(n int) byte {
	return classApplication | constructed | byte(n)&tagNumberMask
}

// Context returns the constructed CONTEXT-class tag for n.
func Context(n int) byte {
	return classContext | constructed | byte(n)&tagNumberMask
}

// IsContext reports whether tag is context-class.
func IsContext(tag byte) bool {
	return tag&0xc0 == classContext
}

// IsApplication reports whether tag is application-class.
func IsApplication(tag byte) bool {
	return tag&0xc0 == classApplication
}

// TagNumber strips class and constructed bits.
func TagNumber(tag byte) int {
	return int(tag & tagNumberMask)
}
