// Package encoding converts the EUC-KR names stored in Ragnarok Online archives.
package encoding

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// DecodeName converts an EUC-KR name to UTF-8, stopping at the first NUL.
// Bytes that are not valid EUC-KR are returned unchanged.
func DecodeName(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	out, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

// EncodeName converts a UTF-8 name to EUC-KR. Names that cannot be encoded are returned as is.
func EncodeName(s string) []byte {
	out, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), []byte(s))
	if err != nil {
		return []byte(s)
	}
	return out
}

// NormalizePath returns the lookup key of an archive path: forward slashes, lower case,
// no leading slash.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimLeft(strings.ToLower(p), "/")
}
