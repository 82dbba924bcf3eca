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
	"io"
	"time"

	"github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"
)

// pollTimeout is the inter-character timeout on the serial port. Every read
// returns within this duration when the line is quiet.
const pollTimeout = 100

// receiving a track block is abandoned after this ceiling, even if bytes
// keep trickling in
const trackReceiveLimit = 5 * time.Second

// DefaultBaudRate is the preferred FDC+ rate. It allows full speed operation
// and is the most accurate of the three rate choices on the FDC.
const DefaultBaudRate = 403200

//
var baudRates = []uint{230400, 403200, 460800}

// ValidBaudRate reports whether rate is one of the rates supported by the
// FDC+ serial link.
func ValidBaudRate(rate uint) bool {
	for _, r := range baudRates {
		if r == rate {
			return true
		}
	}
	return false
}

/*
	conduit wraps the serial line to the FDC: 8 data bits, no parity, one stop
	bit, no flow control. All reads are bounded short polls, so the daemon can
	tell a quiet line from one that is mid-message.
*/
type conduit struct {
	port io.ReadWriteCloser
}

//
func newConduit(device string, baud uint) (*conduit, error) {
	port, err := openPort(device, baud)
	if err != nil {
		return nil, err
	}
	return &conduit{port: port}, nil
}

//
func openPort(device string, baud uint) (io.ReadWriteCloser, error) {
	return serial.Open(serial.OpenOptions{
		PortName:              device,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: pollTimeout,
		MinimumReadSize:       0,
	})
}

//
func (c *conduit) close() error {
	return c.port.Close()
}

// poll runs one bounded read. A quiet line yields a zero count.
func (c *conduit) poll(buf []byte) (int, error) {
	n, err := c.port.Read(buf)
	if err == io.EOF {
		err = nil
	}
	return n, err
}

/*
	receiveFrame accumulates raw bytes into a complete ten byte frame. The
	bytes may arrive in any number of chunks. When the line goes quiet while
	a frame is still incomplete, the partial frame is discarded and nil is
	returned; the FDC retries on its own timeout. An idle line also yields
	nil, so the caller gets regular control back in between frames.
*/
func (c *conduit) receiveFrame() (*frame, error) {

	buf := make([]byte, frameLength)

	for ix := 0; ix < frameLength; {
		n, err := c.poll(buf[ix:])
		if err != nil {
			return nil, err
		}
		if n == 0 {
			if ix > 0 {
				log.Debugf("discarding partial frame of %d bytes", ix)
			}
			return nil, nil
		}
		ix += n
	}

	return decodeFrame(buf)
}

//
func (c *conduit) sendFrame(data []byte) error {
	_, err := c.port.Write(data)
	return err
}

// sendTrack transmits a raw track followed by its two byte checksum. The
// block is the entire response, no frame wraps it.
func (c *conduit) sendTrack(payload []byte) error {
	block := make([]byte, len(payload)+2)
	copy(block, payload)
	binary.LittleEndian.PutUint16(block[len(payload):], checksum(payload))
	_, err := c.port.Write(block)
	return err
}

/*
	receiveTrack collects up to length raw bytes of track data. The wait is
	extended as long as new bytes keep arriving within the poll timeout, with
	a hard ceiling after which the transfer is abandoned. The caller checks
	the returned count against the expected transfer length.
*/
func (c *conduit) receiveTrack(length int) ([]byte, error) {

	buf := make([]byte, length)
	deadline := time.Now().Add(trackReceiveLimit)
	ix := 0

	for ix < length && time.Now().Before(deadline) {
		n, err := c.poll(buf[ix:])
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break // line went quiet
		}
		ix += n
	}

	return buf[:ix], nil
}
