package cryptoutil

import "encoding/base64"

// B64 returns standard base64 encoding without newlines.
func B64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// B64Decode reverses B64. Round-trips exactly for all inputs, including empty.
func B64Decode(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }

// B64Fixed decodes a base64 string and enforces an exact decoded length.
func B64Fixed(s string, size int) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(data) != size {
		return nil, errUnexpectedLength(len(data), size)
	}
	out := make([]byte, size)
	copy(out, data)
	return out, nil
}
