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
)

//
func newCommand(f *frame) *command {
	return &command{frame: f}
}

//
type command struct {
	frame *frame
}

//
func (c *command) dispatch(d *Daemon) error {

	switch c.frame.tag {

	case TagStat:
		return c.stat(d)

	case TagRead:
		return c.read(d)

	case TagWrit:
		return c.writ(d)
	}

	// unknown tag: logged, no response
	return d.reject(fmt.Errorf("unknown command: %q", c.frame.tag))
}

// drive returns the drive number from the top nibble of parameter 1, as used
// by READ and WRIT.
func (c *command) drive() int {
	return int(c.frame.param1 >> 12)
}

// track returns the track number from the lower 12 bits of parameter 1, as
// used by READ and WRIT.
func (c *command) track() uint16 {
	return c.frame.param1 & 0x0fff
}
