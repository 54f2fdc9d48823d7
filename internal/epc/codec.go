// SPDX-License-Identifier: MIT

// Package epc decodes raw RFID EPC hex strings into the canonical QR
// string a point-of-sale system printed on the tag at manufacture time.
package epc

import (
	"regexp"
	"strings"
)

// hexPattern matches a non-empty string of hex digits only.
var hexPattern = regexp.MustCompile(`^[0-9A-Fa-f]+$`)

// minEPCLen/maxEPCLen bound the typical raw EPC length in hex characters.
const (
	minEPCLen = 8
	maxEPCLen = 32
)

// table maps each two-character hex pair to the letter it encodes.
// Row-major: A0..F0 -> A..F, A1..F1 -> G..L, A2..F2 -> M..R, A3..F3 -> S..X,
// A4,B4 -> Y,Z.
var table = buildTable()

func buildTable() map[string]byte {
	rows := [][]byte{
		[]byte("ABCDEF"), // row 0 -> A..F
		[]byte("GHIJKL"), // row 1 -> G..L
		[]byte("MNOPQR"), // row 2 -> M..R
		[]byte("STUVWX"), // row 3 -> S..X
		[]byte("YZ"),     // row 4 -> Y,Z (only A4,B4 keys exist)
	}
	hexCols := "ABCDEF"
	m := make(map[string]byte, 26)
	for row, letters := range rows {
		for col, letter := range letters {
			key := string(hexCols[col]) + itoaDigit(row)
			m[key] = letter
		}
	}
	return m
}

func itoaDigit(n int) string {
	return string(rune('0' + n))
}

// Decode converts a raw EPC hex string into its canonical QR string.
//
// Input may be any case. Trailing runs of padding "F" are stripped before
// scanning. The scan is greedy left to right: at each position, if the next
// two characters form a table key, the mapped letter is emitted and the
// cursor advances by two; otherwise the current character is emitted
// verbatim and the cursor advances by one. Empty input yields empty output.
// Decode is a pure, total function: it never errors and is safe to memoize.
func Decode(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimRight(s, "F")
	if s == "" {
		return ""
	}

	var out strings.Builder
	out.Grow(len(s))

	for i := 0; i < len(s); {
		if i+1 < len(s) {
			key := s[i : i+2]
			if letter, ok := table[key]; ok {
				out.WriteByte(letter)
				i += 2
				continue
			}
		}
		out.WriteByte(s[i])
		i++
	}
	return out.String()
}

// IsValid reports whether raw looks like a real EPC: hex characters only,
// between minEPCLen and maxEPCLen characters long. It does not decode raw;
// a string can be valid-looking hex and still decode to an empty or
// meaningless QR code, and vice versa.
func IsValid(raw string) bool {
	if raw == "" {
		return false
	}
	if !hexPattern.MatchString(raw) {
		return false
	}
	return len(raw) >= minEPCLen && len(raw) <= maxEPCLen
}

// Normalize uppercases and trims a QR string to the canonical form used as
// the state-store key.
func Normalize(qr string) string {
	return strings.ToUpper(strings.TrimSpace(qr))
}

// BatchDecode decodes a slice of raw EPC strings, preserving order.
func BatchDecode(raws []string) []string {
	out := make([]string, len(raws))
	for i, raw := range raws {
		out[i] = Decode(raw)
	}
	return out
}
