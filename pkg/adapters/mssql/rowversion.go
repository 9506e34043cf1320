package mssql

import (
	"encoding/binary"
)

// rowVersionHex renders an 8-byte rowversion/timestamp value as upper-case
// hex without leading zeros. The zero version renders as "00".
//
//   - []byte{0x00, 0x00, 0x00, 0x00, 0x18, 0x7F, 0x86, 0x3C} → "187F863C"
//   - []byte{0x00, 0x00, 0x00, 0x19, 0xA4, 0xAE, 0x7C, 0x00} → "19A4AE7C00"
func rowVersionHex(data []byte) string {
	if len(data) != 8 {
		if len(data) == 0 {
			return ""
		}
		return "00"
	}

	v := binary.BigEndian.Uint64(data)
	if v == 0 {
		return "00"
	}

	const hexChars = "0123456789ABCDEF"
	var out [16]byte
	pos := len(out)
	for v > 0 {
		pos--
		out[pos] = hexChars[v&0x0F]
		v >>= 4
	}
	return string(out[pos:])
}
