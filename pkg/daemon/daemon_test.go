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
	"os"
	"path/filepath"
	"testing"
)

//
func newTestDaemon() (*Daemon, *testPort) {
	p := &testPort{}
	d := NewDaemon("", DefaultBaudRate)
	d.conduit = &conduit{port: p}
	return d, p
}

// createImage writes a disk image of the given size, filled with a
// deterministic byte pattern.
func createImage(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.dsk")
	data := make([]byte, size)
	for ix := range data {
		data[ix] = byte(ix)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

//
func mountImage(t *testing.T, d *Daemon, drive, size int) string {
	t.Helper()
	path := createImage(t, size)
	if err := d.Mount(drive, path); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	return path
}

// runFrame feeds one command frame into the daemon and runs one input cycle.
func runFrame(t *testing.T, d *Daemon, p *testPort, raw []byte) {
	t.Helper()
	p.in.Write(raw)
	if err := d.process(); err != nil {
		t.Fatalf("process failed: %v", err)
	}
}

// nextResponseFrame pops one ten byte response frame off the transport.
func nextResponseFrame(t *testing.T, p *testPort) *frame {
	t.Helper()
	raw := make([]byte, frameLength)
	if n, _ := p.out.Read(raw); n != frameLength {
		t.Fatalf("got %d response bytes, want %d", n, frameLength)
	}
	f, err := decodeFrame(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !f.valid() {
		t.Fatalf("response frame has invalid checksum: %+v", f)
	}
	return f
}

//
func assertQuiet(t *testing.T, p *testPort) {
	t.Helper()
	if p.out.Len() != 0 {
		t.Fatalf("unexpected %d bytes on transport", p.out.Len())
	}
}

//
func trackPayload(length int) []byte {
	ret := make([]byte, length)
	for ix := range ret {
		ret[ix] = byte(0x55 ^ ix)
	}
	return ret
}

// trackBlock appends the little endian checksum to a copy of payload.
func trackBlock(payload []byte) []byte {
	ret := make([]byte, len(payload)+2)
	copy(ret, payload)
	binary.LittleEndian.PutUint16(ret[len(payload):], checksum(payload))
	return ret
}

func TestStatMountMask(t *testing.T) {

	for mask := 0; mask < 1<<DriveCount; mask++ {

		d, p := newTestDaemon()
		for drv := 0; drv < DriveCount; drv++ {
			if mask&(1<<drv) != 0 {
				mountImage(t, d, drv, 150000)
			}
		}

		runFrame(t, d, p, encodeFrame(TagStat, noDriveSelected, 0))

		f := nextResponseFrame(t, p)
		if f.tag != TagStat {
			t.Fatalf("mask %04b: response tagged %q", mask, f.tag)
		}
		if f.param1 != rcOK {
			t.Errorf("mask %04b: response code %d", mask, f.param1)
		}
		if f.param2 != uint16(mask) {
			t.Errorf("mask %04b: mount mask %04b", mask, f.param2)
		}
	}
}

func TestStatSelectsDrive(t *testing.T) {

	d, p := newTestDaemon()
	mountImage(t, d, 1, 150000)

	// drive 1, head loaded, track 12
	runFrame(t, d, p, encodeFrame(TagStat, 0x0101, 12))
	nextResponseFrame(t, p)

	for ix := range d.table.slots {
		s := &d.table.slots[ix]
		if ix == 1 {
			if !s.selected || !s.headLoaded || s.track != 12 {
				t.Errorf("drive 1 state: %+v", s)
			}
		} else if s.selected {
			t.Errorf("drive %d unexpectedly selected", ix)
		}
	}

	// selecting drive 2 must deselect drive 1
	runFrame(t, d, p, encodeFrame(TagStat, 0x0002, 3))
	nextResponseFrame(t, p)

	if d.table.slots[1].selected {
		t.Error("drive 1 still selected")
	}
	s := &d.table.slots[2]
	if !s.selected || s.headLoaded || s.track != 3 {
		t.Errorf("drive 2 state: %+v", s)
	}
}

func TestStatNoDriveSelected(t *testing.T) {

	d, p := newTestDaemon()
	mountImage(t, d, 0, 150000)
	mountImage(t, d, 2, 150000)

	runFrame(t, d, p, encodeFrame(TagStat, 0x0100, 7))
	nextResponseFrame(t, p)

	// sentinel must not touch any slot, but still yield the mask
	runFrame(t, d, p, encodeFrame(TagStat, 0x01ff, 99))

	f := nextResponseFrame(t, p)
	if f.param2 != 0b0101 {
		t.Errorf("mount mask %04b, want 0101", f.param2)
	}

	s := &d.table.slots[0]
	if !s.selected || !s.headLoaded || s.track != 7 {
		t.Errorf("drive 0 state changed: %+v", s)
	}
}

func TestStatDriveBeyondTable(t *testing.T) {

	d, p := newTestDaemon()
	mountImage(t, d, 0, 150000)

	// drive numbers 4..0xfe are no more valid than the 0xff sentinel
	runFrame(t, d, p, encodeFrame(TagStat, 0x0107, 42))

	f := nextResponseFrame(t, p)
	if f.param2 != 0b0001 {
		t.Errorf("mount mask %04b, want 0001", f.param2)
	}
	for ix := range d.table.slots {
		if d.table.slots[ix].selected {
			t.Errorf("drive %d selected", ix)
		}
	}
}

func TestReadTrack(t *testing.T) {

	d, p := newTestDaemon()
	path := mountImage(t, d, 0, 150000)

	const track, trackLen = 2, 128
	runFrame(t, d, p, encodeFrame(TagRead, track, trackLen))

	img, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := trackBlock(img[track*trackLen : (track+1)*trackLen])

	if !bytes.Equal(p.out.Bytes(), want) {
		t.Errorf("track block differs, got %d bytes, want %d",
			p.out.Len(), len(want))
	}

	s := &d.table.slots[0]
	if !s.selected || !s.headLoaded || s.track != track {
		t.Errorf("drive 0 state after READ: %+v", s)
	}
}

func TestReadRejected(t *testing.T) {

	cases := []struct {
		name   string
		mount  bool
		param1 uint16 // drive in top nibble, track in lower 12 bits
		param2 uint16
	}{
		{"oversized transfer", true, 0, maxTrackLength + 1},
		{"unmounted drive", false, 0, 137},
		{"drive at boundary", true, 4 << 12, 137},
		{"drive beyond boundary", true, 9 << 12, 137},
		{"track beyond end", true, 35, 137}, // maxTrack is 34
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {

			d, p := newTestDaemon()
			if c.mount {
				mountImage(t, d, 0, 150000)
			}

			runFrame(t, d, p, encodeFrame(TagRead, c.param1, c.param2))

			assertQuiet(t, p)
			for ix := range d.table.slots {
				s := &d.table.slots[ix]
				if s.selected || s.headLoaded || s.track != 0 {
					t.Errorf("drive %d state mutated: %+v", ix, s)
				}
			}
		})
	}
}

func TestWritTrack(t *testing.T) {

	d, p := newTestDaemon()
	path := mountImage(t, d, 0, 150000)

	const trackLen = 128
	payload := trackPayload(trackLen)

	p.in.Write(encodeFrame(TagWrit, 0, trackLen))
	p.in.Write(trackBlock(payload))
	if err := d.process(); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	ack := nextResponseFrame(t, p)
	if ack.tag != TagWrit || ack.param1 != rcOK {
		t.Fatalf("acknowledgement %s/%d", ack.tag, ack.param1)
	}

	closing := nextResponseFrame(t, p)
	if closing.tag != TagWsta || closing.param1 != rcOK {
		t.Fatalf("closing frame %s/%d", closing.tag, closing.param1)
	}

	img, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(img[:trackLen], payload) {
		t.Error("image track 0 does not hold the sent payload")
	}
}

func TestWritChecksumError(t *testing.T) {

	d, p := newTestDaemon()
	path := mountImage(t, d, 0, 150000)

	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	const trackLen = 128
	block := trackBlock(trackPayload(trackLen))
	block[trackLen] ^= 0x01 // corrupt the trailing checksum

	p.in.Write(encodeFrame(TagWrit, 0, trackLen))
	p.in.Write(block)
	if err := d.process(); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	ack := nextResponseFrame(t, p)
	if ack.tag != TagWrit || ack.param1 != rcOK {
		t.Fatalf("acknowledgement %s/%d", ack.tag, ack.param1)
	}

	closing := nextResponseFrame(t, p)
	if closing.tag != TagWsta || closing.param1 != rcChecksumErr {
		t.Fatalf("closing frame %s/%d, want WSTA/checksum error",
			closing.tag, closing.param1)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("image mutated despite checksum error")
	}
}

func TestWritShortData(t *testing.T) {

	d, p := newTestDaemon()
	mountImage(t, d, 0, 150000)

	const trackLen = 128

	p.in.Write(encodeFrame(TagWrit, 0, trackLen))
	p.in.Write(trackPayload(trackLen / 2)) // line dies half way
	if err := d.process(); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	nextResponseFrame(t, p) // acknowledgement

	closing := nextResponseFrame(t, p)
	if closing.tag != TagWsta || closing.param1 != rcChecksumErr {
		t.Fatalf("closing frame %s/%d, want WSTA/checksum error",
			closing.tag, closing.param1)
	}
}

func TestWritNotReady(t *testing.T) {

	t.Run("unmounted drive", func(t *testing.T) {

		d, p := newTestDaemon()

		// track data the daemon must not wait for, let alone consume
		stale := trackBlock(trackPayload(128))

		p.in.Write(encodeFrame(TagWrit, 0, 128))
		p.in.Write(stale)
		if err := d.process(); err != nil {
			t.Fatalf("process failed: %v", err)
		}

		closing := nextResponseFrame(t, p)
		if closing.tag != TagWsta || closing.param1 != rcNotReady {
			t.Fatalf("closing frame %s/%d, want WSTA/not ready",
				closing.tag, closing.param1)
		}
		assertQuiet(t, p) // no acknowledgement was sent

		if p.in.Len() != len(stale) {
			t.Error("daemon consumed track data without acknowledgement")
		}
	})

	t.Run("oversized transfer", func(t *testing.T) {

		d, p := newTestDaemon()
		mountImage(t, d, 0, 150000)

		runFrame(t, d, p, encodeFrame(TagWrit, 0, maxTrackLength+1))

		closing := nextResponseFrame(t, p)
		if closing.tag != TagWsta || closing.param1 != rcNotReady {
			t.Fatalf("closing frame %s/%d, want WSTA/not ready",
				closing.tag, closing.param1)
		}
		assertQuiet(t, p)
	})
}

func TestWritRejected(t *testing.T) {

	t.Run("track beyond end", func(t *testing.T) {

		d, p := newTestDaemon()
		mountImage(t, d, 0, 150000) // maxTrack 34

		runFrame(t, d, p, encodeFrame(TagWrit, 35, 128))
		assertQuiet(t, p)
	})

	t.Run("drive at boundary", func(t *testing.T) {

		d, p := newTestDaemon()
		mountImage(t, d, 0, 150000)

		runFrame(t, d, p, encodeFrame(TagWrit, 4<<12, 128))
		assertQuiet(t, p)
	})
}

func TestInvalidCommandChecksumDropped(t *testing.T) {

	d, p := newTestDaemon()
	mountImage(t, d, 0, 150000)

	raw := encodeFrame(TagStat, noDriveSelected, 0)
	raw[9] ^= 0x80

	runFrame(t, d, p, raw)

	assertQuiet(t, p)
	if c := d.Counters(); c.Errors != 1 {
		t.Errorf("error counter %d, want 1", c.Errors)
	}
}

func TestUnknownTagDropped(t *testing.T) {

	d, p := newTestDaemon()

	runFrame(t, d, p, encodeFrame("BOOT", 0, 0))
	assertQuiet(t, p)
}

func TestCounters(t *testing.T) {

	d, p := newTestDaemon()
	mountImage(t, d, 0, 150000)

	runFrame(t, d, p, encodeFrame(TagStat, noDriveSelected, 0))
	runFrame(t, d, p, encodeFrame(TagStat, 0, 1))
	runFrame(t, d, p, encodeFrame(TagRead, 0, 128))

	c := d.Counters()
	if c.Commands[TagStat] != 2 || c.Commands[TagRead] != 1 {
		t.Errorf("command counters: %v", c.Commands)
	}
}

func TestMountUnmount(t *testing.T) {

	d, _ := newTestDaemon()
	path := mountImage(t, d, 3, 300000)

	st := d.Status()
	if st == nil {
		t.Fatal("status unavailable")
	}
	s := st[3]
	if !s.Mounted || s.MaxTrack != 76 || s.Image != filepath.Base(path) {
		t.Errorf("drive 3 status: %+v", s)
	}

	if err := d.Mount(3, path); err == nil {
		t.Error("double mount not refused")
	}

	if err := d.Unmount(3); err != nil {
		t.Fatalf("unmount failed: %v", err)
	}
	if s := d.Status()[3]; s.Mounted || s.MaxTrack != 0 || s.Track != 0 {
		t.Errorf("drive 3 status after unmount: %+v", s)
	}

	if err := d.Unmount(3); err == nil {
		t.Error("unmounting empty drive not refused")
	}
}
