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
	log "github.com/sirupsen/logrus"
)

// the LSB of parameter 1 carries this sentinel when no drive is selected
const noDriveSelected = 0xff

/*
	stat handles the STAT command, issued by the FDC about ten times per
	second. Parameter 1 carries the selected drive number in the LSB and the
	head load state in the MSB, parameter 2 the current track. The response
	always carries the mount state of all drives in the response data word,
	one bit per drive, drive 0 in the LSB. A drive number of 0xff (or any
	number beyond the drive table) updates nothing.
*/
func (c *command) stat(d *Daemon) error {

	driveNum := int(c.frame.param1 & 0x00ff)
	head := c.frame.param1&0xff00 != 0
	track := c.frame.param2

	d.event(TagStat, driveNum)

	if driveNum < DriveCount {
		d.table.selectDrive(driveNum, head, track)
		log.WithFields(log.Fields{
			"drive": driveNum,
			"head":  head,
			"track": track,
		}).Trace("STAT")
	} else if driveNum == noDriveSelected {
		log.Trace("STAT, no drive selected")
	}

	return d.conduit.sendFrame(encodeFrame(TagStat, rcOK, d.table.mask()))
}
