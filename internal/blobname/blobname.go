// Package blobname maps a page index to the textual name its blob is stored
// under in a buffer-store bucket. The mapping is one-to-one for page indices
// below 10^9; longer names are truncated to FieldWidth and can collide.
package blobname

import "strconv"

// FieldWidth bounds a blob name: the decimal digits of a page index plus a
// trailing newline, never more than this many bytes. Implementations must
// not choose a different width or the name stops being interoperable with
// an existing bucket.
const FieldWidth = 10

// Name returns the blob name for page index k: its decimal ASCII
// representation followed by a single '\n', truncated to FieldWidth bytes.
// With FieldWidth 10 every page index through 10^8 is represented exactly.
func Name(k uint64) string {
	s := strconv.FormatUint(k, 10) + "\n"
	if len(s) > FieldWidth {
		s = s[:FieldWidth]
	}
	return s
}
