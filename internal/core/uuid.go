package core

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

// NewUUIDv7 generates a UUIDv7: 48-bit Unix millisecond timestamp followed by
// random bits, so identifiers sort roughly by creation time.
func NewUUIDv7() string {
	var b [16]byte

	ms := uint64(time.Now().UnixMilli())
	binary.BigEndian.PutUint64(b[:8], ms<<16)

	if _, err := rand.Read(b[6:]); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("uuid: rand.Read: %v", err))
	}

	b[6] = (b[6] & 0x0f) | 0x70 // version 7
	b[8] = (b[8] & 0x3f) | 0x80 // variant 10

	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

// IsValidUUIDv7 reports whether s is a well-formed UUIDv7.
func IsValidUUIDv7(s string) bool {
	b, ok := parseUUID(s)
	if !ok {
		return false
	}
	return b[6]>>4 == 7 && b[8]&0xc0 == 0x80
}

// IsValidUUID reports whether s is a well-formed UUID of any version.
func IsValidUUID(s string) bool {
	_, ok := parseUUID(s)
	return ok
}

func parseUUID(s string) ([16]byte, bool) {
	var b [16]byte
	if len(s) != 36 || s[8] != '-' || s[13] != '-' || s[18] != '-' || s[23] != '-' {
		return b, false
	}
	hexOnly := s[0:8] + s[9:13] + s[14:18] + s[19:23] + s[24:36]
	decoded, err := hex.DecodeString(hexOnly)
	if err != nil {
		return b, false
	}
	copy(b[:], decoded)
	return b, true
}
