/*
   SerialDisk - Altair FDC+ serial disk server
   Copyright (c) 2026, the SerialDisk authors

   This file is part of SerialDisk.

   SerialDisk is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   SerialDisk is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with SerialDisk. If not, see <http://www.gnu.org/licenses/>.
*/

package daemon

import (
	"bytes"
	"testing"
)

func TestChecksum(t *testing.T) {

	cases := []struct {
		name string
		data []byte
		want uint16
	}{
		{"empty", nil, 0},
		{"single", []byte{0x42}, 0x42},
		{"eight bytes", []byte{1, 2, 3, 4, 5, 6, 7, 8}, 36},
		{"high bytes", bytes.Repeat([]byte{0xff}, 8), 8 * 255},
		{"wraparound", bytes.Repeat([]byte{0xff}, 1000), 58392}, // 255000 mod 65536
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := checksum(c.data); got != c.want {
				t.Errorf("got %d, want %d", got, c.want)
			}
		})
	}
}

func TestFrameRoundTrip(t *testing.T) {

	tags := []string{TagStat, TagRead, TagWrit, TagWsta}
	params := []uint16{0, 1, 0x1234, 0x8000, 0xffff}

	for _, tag := range tags {
		for _, p1 := range params {
			for _, p2 := range params {

				raw := encodeFrame(tag, p1, p2)
				if len(raw) != frameLength {
					t.Fatalf("encoded frame has %d bytes", len(raw))
				}

				f, err := decodeFrame(raw)
				if err != nil {
					t.Fatalf("decode failed: %v", err)
				}
				if f.tag != tag || f.param1 != p1 || f.param2 != p2 {
					t.Errorf("round trip %s/%04x/%04x yielded %s/%04x/%04x",
						tag, p1, p2, f.tag, f.param1, f.param2)
				}
				if !f.valid() {
					t.Errorf("encoded frame %s/%04x/%04x fails checksum",
						tag, p1, p2)
				}
			}
		}
	}
}

func TestEncodeFrameChecksum(t *testing.T) {

	raw := encodeFrame(TagStat, 0x01ff, 0x0022)

	var sum uint16
	for _, b := range raw[:checksumLength] {
		sum += uint16(b)
	}

	got := uint16(raw[8]) | uint16(raw[9])<<8
	if got != sum {
		t.Errorf("trailing checksum %04x, want %04x", got, sum)
	}
}

func TestDecodeFrameLength(t *testing.T) {

	for _, l := range []int{0, 1, 9, 11} {
		if _, err := decodeFrame(make([]byte, l)); err == nil {
			t.Errorf("no error for %d byte frame", l)
		}
	}
}

func TestFrameInvalidChecksum(t *testing.T) {

	raw := encodeFrame(TagRead, 0x1003, 137*8)
	raw[8] ^= 0x01

	f, err := decodeFrame(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if f.valid() {
		t.Error("corrupted frame passes checksum validation")
	}
}
