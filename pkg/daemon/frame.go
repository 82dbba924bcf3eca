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
	"encoding/binary"
	"fmt"
)

/*
	Commands and responses are fixed length, ten byte messages. The first four
	bytes are a command tag in ASCII, the remaining six bytes are three 16 bit
	words, little endian. The last word is the checksum, the unsigned 16 bit
	sum of the first eight bytes of the message.
*/
const frameLength = 10
const checksumLength = 8

const tagLength = 4

//
const TagStat = "STAT"
const TagRead = "READ"
const TagWrit = "WRIT"
const TagWsta = "WSTA"

// response codes
const (
	rcOK          uint16 = 0x0000
	rcNotReady    uint16 = 0x0001
	rcChecksumErr uint16 = 0x0002
	rcWriteErr    uint16 = 0x0003
)

//
type frame struct {
	tag      string
	param1   uint16
	param2   uint16
	checksum uint16 // checksum as received
	sum      uint16 // checksum computed over the first eight bytes
}

// valid reports whether the received checksum matches the computed one.
func (f *frame) valid() bool {
	return f.checksum == f.sum
}

// checksum is the unsigned 16 bit wrap-around sum of data, each byte taken
// as unsigned.
func checksum(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum += uint16(b)
	}
	return sum
}

// decodeFrame splits a raw ten byte message into its fields. The checksum is
// not enforced here, see frame.valid.
func decodeFrame(data []byte) (*frame, error) {
	if len(data) != frameLength {
		return nil, fmt.Errorf("invalid frame length: %d", len(data))
	}
	return &frame{
		tag:      string(data[:tagLength]),
		param1:   binary.LittleEndian.Uint16(data[4:6]),
		param2:   binary.LittleEndian.Uint16(data[6:8]),
		checksum: binary.LittleEndian.Uint16(data[8:10]),
		sum:      checksum(data[:checksumLength]),
	}, nil
}

// encodeFrame assembles a ten byte message from tag and parameter words,
// computing the checksum over the first eight bytes.
func encodeFrame(tag string, param1, param2 uint16) []byte {
	ret := make([]byte, frameLength)
	copy(ret, tag[:tagLength])
	binary.LittleEndian.PutUint16(ret[4:6], param1)
	binary.LittleEndian.PutUint16(ret[6:8], param2)
	binary.LittleEndian.PutUint16(ret[8:10], checksum(ret[:checksumLength]))
	return ret
}
