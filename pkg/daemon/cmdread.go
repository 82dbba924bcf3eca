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
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
)

/*
	read handles the READ command. Parameter 1 carries the drive number in
	the top nibble and the track in the lower 12 bits, parameter 2 the
	transfer length, which must be the track length. The entire response is
	the raw track followed by its two byte checksum; no frame wraps it.
	Invalid requests are dropped without a response and without touching the
	drive table; the FDC retries on its own timeout.
*/
func (c *command) read(d *Daemon) error {

	driveNum := c.drive()
	track := c.track()
	trackLen := int(c.frame.param2)

	d.event(TagRead, driveNum)

	drv := d.table.get(driveNum)
	if drv == nil {
		return d.reject(fmt.Errorf("READ: illegal drive number %d", driveNum))
	}
	if !drv.mounted() {
		return d.reject(fmt.Errorf("READ: drive %d not mounted", driveNum))
	}
	if trackLen > maxTrackLength {
		return d.reject(fmt.Errorf(
			"READ: track length %d exceeds %d bytes", trackLen, maxTrackLength))
	}
	if track > drv.maxTrack {
		return d.reject(fmt.Errorf(
			"READ: track %d beyond end of drive %d", track, driveNum))
	}

	// a READ implies the drive is selected and the head loaded
	d.table.selectDrive(driveNum, true, track)

	if err := drv.image.Seek(int64(track) * int64(trackLen)); err != nil {
		return d.reject(fmt.Errorf("READ: seek failed: %v", err))
	}

	buf := make([]byte, trackLen)
	if _, err := io.ReadFull(drv.image, buf); err != nil {
		// short read past end of image, abort without response
		return d.reject(fmt.Errorf("READ: reading track failed: %v", err))
	}

	log.WithFields(log.Fields{
		"drive":  driveNum,
		"track":  track,
		"length": trackLen,
	}).Debug("READ")

	return d.conduit.sendTrack(buf)
}
