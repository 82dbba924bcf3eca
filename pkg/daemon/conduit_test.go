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
	"encoding/binary"
	"testing"
)

/*
	testPort stands in for the serial line. Reads drain the in buffer; a
	drained buffer reads as a quiet line, which is what the port delivers
	when the inter-character timeout strikes. Writes collect in out.
*/
type testPort struct {
	in  bytes.Buffer
	out bytes.Buffer
	// when set, reads return at most chunk bytes, to exercise
	// accumulation across partial reads
	chunk int
}

func (p *testPort) Read(buf []byte) (int, error) {
	if p.in.Len() == 0 {
		return 0, nil
	}
	if p.chunk > 0 && len(buf) > p.chunk {
		buf = buf[:p.chunk]
	}
	return p.in.Read(buf)
}

func (p *testPort) Write(buf []byte) (int, error) {
	return p.out.Write(buf)
}

func (p *testPort) Close() error {
	return nil
}

func TestReceiveFrameChunked(t *testing.T) {

	p := &testPort{chunk: 3}
	c := &conduit{port: p}

	p.in.Write(encodeFrame(TagStat, 0x00ff, 0))

	f, err := c.receiveFrame()
	if err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	if f == nil {
		t.Fatal("no frame received")
	}
	if f.tag != TagStat || f.param1 != 0x00ff {
		t.Errorf("got %s/%04x", f.tag, f.param1)
	}
}

func TestReceiveFrameIdle(t *testing.T) {

	c := &conduit{port: &testPort{}}

	f, err := c.receiveFrame()
	if err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	if f != nil {
		t.Errorf("frame received from idle line: %v", f)
	}
}

func TestReceiveFrameStallDiscarded(t *testing.T) {

	p := &testPort{}
	c := &conduit{port: p}

	// half a frame, then the line goes quiet
	p.in.Write(encodeFrame(TagStat, 0, 0)[:5])

	f, err := c.receiveFrame()
	if err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	if f != nil {
		t.Errorf("frame assembled from partial input: %v", f)
	}

	// a complete frame afterwards must come through untainted
	p.in.Write(encodeFrame(TagWrit, 0x2001, 137))

	if f, err = c.receiveFrame(); err != nil || f == nil {
		t.Fatalf("receive after discard failed: %v, %v", f, err)
	}
	if f.tag != TagWrit || f.param1 != 0x2001 || f.param2 != 137 {
		t.Errorf("got %s/%04x/%04x", f.tag, f.param1, f.param2)
	}
}

func TestSendTrack(t *testing.T) {

	p := &testPort{}
	c := &conduit{port: p}

	payload := bytes.Repeat([]byte{0xa5}, 137)
	if err := c.sendTrack(payload); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	sent := p.out.Bytes()
	if len(sent) != len(payload)+2 {
		t.Fatalf("sent %d bytes, want %d", len(sent), len(payload)+2)
	}
	if !bytes.Equal(sent[:len(payload)], payload) {
		t.Error("payload corrupted")
	}

	want := checksum(payload)
	if got := binary.LittleEndian.Uint16(sent[len(payload):]); got != want {
		t.Errorf("trailing checksum %04x, want %04x", got, want)
	}
}

func TestReceiveTrack(t *testing.T) {

	t.Run("complete", func(t *testing.T) {
		p := &testPort{chunk: 32}
		c := &conduit{port: p}

		payload := make([]byte, 128)
		for ix := range payload {
			payload[ix] = byte(ix)
		}
		p.in.Write(payload)

		got, err := c.receiveTrack(len(payload))
		if err != nil {
			t.Fatalf("receive failed: %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Error("received track differs")
		}
	})

	t.Run("line goes quiet", func(t *testing.T) {
		p := &testPort{}
		c := &conduit{port: p}

		p.in.Write(make([]byte, 50))

		got, err := c.receiveTrack(128)
		if err != nil {
			t.Fatalf("receive failed: %v", err)
		}
		if len(got) != 50 {
			t.Errorf("received %d bytes, want 50", len(got))
		}
	})
}
