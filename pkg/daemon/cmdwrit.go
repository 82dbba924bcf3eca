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

	log "github.com/sirupsen/logrus"
)

/*
	writ handles the WRIT command. Field extraction is the same as for READ.
	When the drive is ready, the daemon acknowledges with a WRIT frame, then
	waits for the track block of transfer length plus two checksum bytes.
	Every WRIT transaction that was acknowledged or refused as not ready is
	closed with a WSTA frame carrying the final response code. A request for
	a track beyond the end of the drive never reaches the acknowledgement
	flow; it is dropped with no response at all, same as for READ.
*/
func (c *command) writ(d *Daemon) error {

	driveNum := c.drive()
	track := c.track()
	trackLen := int(c.frame.param2)

	d.event(TagWrit, driveNum)

	drv := d.table.get(driveNum)
	if drv == nil {
		return d.reject(fmt.Errorf("WRIT: illegal drive number %d", driveNum))
	}

	rcode := rcOK

	if !drv.mounted() {
		log.Debugf("WRIT: drive %d not mounted", driveNum)
		rcode = rcNotReady

	} else if trackLen > maxTrackLength {
		log.Debugf("WRIT: track length %d exceeds %d bytes",
			trackLen, maxTrackLength)
		rcode = rcNotReady

	} else if track > drv.maxTrack {
		return d.reject(fmt.Errorf(
			"WRIT: track %d beyond end of drive %d", track, driveNum))
	}

	if rcode == rcOK {
		rcode = c.receiveAndWrite(d, drv, driveNum, track, trackLen)
	}

	return d.conduit.sendFrame(encodeFrame(TagWsta, rcode, c.frame.param2))
}

/*
	receiveAndWrite runs the bulk part of a WRIT transaction: acknowledge,
	receive the track block, validate it, write the track. Returns the
	response code for the closing WSTA frame. A bad byte count or checksum
	is reported as a checksum error rather than dropped, because the FDC is
	already waiting past the acknowledgement it received.
*/
func (c *command) receiveAndWrite(
	d *Daemon, drv *drive, driveNum int, track uint16, trackLen int) uint16 {

	if err := d.conduit.sendFrame(
		encodeFrame(TagWrit, rcOK, c.frame.param2)); err != nil {
		log.Errorf("WRIT: error sending acknowledgement: %v", err)
		d.recordError(err)
		return rcWriteErr
	}

	data, err := d.conduit.receiveTrack(trackLen + 2)
	if err != nil {
		log.Errorf("WRIT: error receiving track: %v", err)
		d.recordError(err)
		return rcChecksumErr
	}

	if len(data) != trackLen+2 {
		d.recordError(fmt.Errorf(
			"WRIT: received %d of %d bytes", len(data), trackLen+2))
		return rcChecksumErr
	}

	payload := data[:trackLen]
	if checksum(payload) != binary.LittleEndian.Uint16(data[trackLen:]) {
		d.recordError(fmt.Errorf("WRIT: track checksum mismatch"))
		return rcChecksumErr
	}

	if err := drv.image.Seek(int64(track) * int64(trackLen)); err != nil {
		d.recordError(fmt.Errorf("WRIT: seek failed: %v", err))
		return rcWriteErr
	}
	if n, err := drv.image.Write(payload); err != nil || n != trackLen {
		d.recordError(fmt.Errorf("WRIT: writing track failed: %v", err))
		return rcWriteErr
	}

	d.table.selectDrive(driveNum, true, track)

	log.WithFields(log.Fields{
		"drive":  driveNum,
		"track":  track,
		"length": trackLen,
	}).Debug("WRIT")

	return rcOK
}
