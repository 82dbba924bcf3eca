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
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/fdcplus/serialdisk/pkg/disk"
)

// DriveCount is the number of emulated drive slots.
const DriveCount = 4

// maximum valid track length: 32 sectors of 137 bytes
const maxTrackLength = 137 * 32

//
type drive struct {
	image      disk.Image
	name       string
	maxTrack   uint16
	track      uint16
	headLoaded bool
	selected   bool
}

//
func (d *drive) mounted() bool {
	return d.image != nil
}

/*
	driveTable holds the drive slots, owned exclusively by the daemon. All
	access happens under the table lock. The daemon holds the lock for the
	duration of a transaction, so mounting and unmounting only ever happen
	in between.
*/
type driveTable struct {
	slots [DriveCount]drive
	sem   chan bool
}

//
func newDriveTable() *driveTable {
	t := &driveTable{sem: make(chan bool, 1)}
	t.sem <- true
	return t
}

// lock acquires the table, giving up when ctx expires.
func (t *driveTable) lock(ctx context.Context) bool {
	select {
	case <-t.sem:
		return true
	case <-ctx.Done():
		return false
	}
}

//
func (t *driveTable) unlock() {
	t.sem <- true
}

// get returns the slot for 0-based drive number ix, nil if out of range.
func (t *driveTable) get(ix int) *drive {
	if 0 <= ix && ix < DriveCount {
		return &t.slots[ix]
	}
	return nil
}

// selectDrive makes ix the single selected drive and updates its head load
// state and track position.
func (t *driveTable) selectDrive(ix int, head bool, track uint16) {
	for i := range t.slots {
		t.slots[i].selected = false
	}
	if d := t.get(ix); d != nil {
		d.selected = true
		d.headLoaded = head
		d.track = track
	}
}

// mask returns the drive mount state, bit ix set iff drive ix is mounted,
// drive 0 in the least significant bit.
func (t *driveTable) mask() uint16 {
	var ret uint16
	for ix := range t.slots {
		if t.slots[ix].mounted() {
			ret |= 1 << uint(ix)
		}
	}
	return ret
}

// mount places img into slot ix and derives the drive geometry from the
// image size.
func (t *driveTable) mount(ix int, img disk.Image, name string) error {

	d := t.get(ix)
	if d == nil {
		return fmt.Errorf("illegal drive number: %d", ix)
	}
	if d.mounted() {
		return fmt.Errorf("drive %d already mounted", ix)
	}

	size, err := img.Size()
	if err != nil {
		return fmt.Errorf("cannot determine image size: %v", err)
	}

	d.image = img
	d.name = name
	d.maxTrack = disk.MaxTrack(size)
	d.track = 0
	d.headLoaded = false
	return nil
}

//
func (t *driveTable) unmount(ix int) error {

	d := t.get(ix)
	if d == nil {
		return fmt.Errorf("illegal drive number: %d", ix)
	}
	if !d.mounted() {
		return fmt.Errorf("drive %d not mounted", ix)
	}

	err := d.image.Close()
	d.image = nil
	d.name = ""
	d.maxTrack = 0
	d.track = 0
	d.headLoaded = false
	d.selected = false
	return err
}

// closeAll releases the image handles of all mounted drives.
func (t *driveTable) closeAll() {
	for ix := range t.slots {
		if t.slots[ix].mounted() {
			if err := t.unmount(ix); err != nil {
				log.Errorf("error unmounting drive %d: %v", ix, err)
			}
		}
	}
}
