// SPDX-License-Identifier: MIT

package epc

import "testing"

func TestDecode(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"full word with padding", "A0B0C01234FFFFFFFFFF", "ABC1234"},
		{"no row, no padding left after trim", "A0B0C0FFFF", "ABC"},
		{"lowercase input", "a0b0c0ffff", "ABC"},
		{"unmapped digits pass through verbatim", "12340000", "12340000"},
		{"row 1 letters", "A1B1C1", "GHI"},
		{"row 4 short row", "A4B4", "YZ"},
		{"no trailing padding", "A0", "A"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Decode(tc.raw)
			if got != tc.want {
				t.Fatalf("Decode(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestDecodeIdempotentOnEmpty(t *testing.T) {
	if Decode(Decode("")) != "" {
		t.Fatal("expected empty round trip to stay empty")
	}
}

func TestIsValid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want bool
	}{
		{"empty", "", false},
		{"typical tag", "A0B0C01234FFFFFFFFFF", true},
		{"all padding still valid hex of valid length", "FFFFFFFF", true},
		{"non-hex characters rejected", "ZZZZZZZZ", false},
		{"too short", "A0", false},
		{"too long", "A0B0C0A0B0C0A0B0C0A0B0C0A0B0C0A0B0C0", false}, // 36 chars
		{"lowercase hex accepted", "a0b0c01234", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValid(tc.raw); got != tc.want {
				t.Fatalf("IsValid(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  abc1234  "); got != "ABC1234" {
		t.Fatalf("Normalize() = %q, want ABC1234", got)
	}
}

func TestBatchDecode(t *testing.T) {
	got := BatchDecode([]string{"A0B0C0FFFF", "A1B1C1"})
	want := []string{"ABC", "GHI"}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("BatchDecode()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCachedDecoderMatchesDecode(t *testing.T) {
	cd, err := NewCachedDecoder(8)
	if err != nil {
		t.Fatalf("NewCachedDecoder: %v", err)
	}
	raw := "A0B0C01234FFFFFFFFFF"
	want := Decode(raw)

	if got := cd.Decode(raw); got != want {
		t.Fatalf("CachedDecoder.Decode() = %q, want %q", got, want)
	}
	if got := cd.Decode(raw); got != want {
		t.Fatalf("second CachedDecoder.Decode() = %q, want %q", got, want)
	}
	if cd.Len() != 1 {
		t.Fatalf("expected 1 cached entry, got %d", cd.Len())
	}

	cd.Purge()
	if cd.Len() != 0 {
		t.Fatal("expected cache to be empty after Purge")
	}
}
