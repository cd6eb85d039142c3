package wschat

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

type CloseCode uint16

const (
	CloseNormal        CloseCode = 1000
	CloseGoingAway     CloseCode = 1001
	CloseProtocolError CloseCode = 1002
	CloseNoStatus      CloseCode = 1005
)

func (cc CloseCode) isValid() bool {
	return cc >= 1000 && cc <= 1003 ||
		cc >= 1007 && cc <= 1011 ||
		cc >= 3000 && cc <= 5000 ||
		int(cc) == math.MaxUint16
}

// ClosePayload builds the body of a close frame.
func ClosePayload(cc CloseCode, reason string) []byte {
	b := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(b, uint16(cc))
	copy(b[2:], reason)
	return b
}

// ParseClosePayload splits the body of a close frame into its code and reason.
// An empty body yields CloseNoStatus.
func ParseClosePayload(b []byte) (CloseCode, string, error) {
	switch {
	case len(b) == 0:
		return CloseNoStatus, "", nil
	case len(b) < 2:
		return 0, "", errInvalidClosePayload
	}
	cc := CloseCode(binary.BigEndian.Uint16(b[:2]))
	if !cc.isValid() {
		return cc, "", errInvalidCloseCode
	}
	if !utf8.Valid(b[2:]) {
		return cc, "", errInvalidUTF8
	}
	return cc, string(b[2:]), nil
}
