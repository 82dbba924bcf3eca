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

package control

import (
	"fmt"

	"github.com/fdcplus/serialdisk/pkg/daemon"
)

//
type Status struct {
	Drives   []*daemon.DriveStatus `json:"drives"`
	Counters *daemon.Counters      `json:"counters,omitempty"`
}

//
func (s *Status) String() string {

	ret := "\nDRIVE IMAGE            TRACK      FLAGS"
	for _, d := range s.Drives {
		ret += fmt.Sprintf("\n  %d   %s", d.Drive, driveLine(d))
	}

	if s.Counters != nil {
		ret += fmt.Sprintf("\n\ncommands: %v, errors: %d",
			s.Counters.Commands, s.Counters.Errors)
		if s.Counters.LastError != "" {
			ret += fmt.Sprintf("\nlast error: %s", s.Counters.LastError)
		}
	}

	return ret
}

//
func driveLine(d *daemon.DriveStatus) string {

	if d == nil {
		return "<busy>"
	}

	if !d.Mounted {
		return "<empty>"
	}

	sel := ' '
	if d.Selected {
		sel = 'S'
	}

	head := ' '
	if d.HeadLoaded {
		head = 'H'
	}

	return fmt.Sprintf("%-16s %4d/%-4d  %c%c",
		d.Image, d.Track, d.MaxTrack, sel, head)
}

// Change carries a drive table change for long poll watchers.
type Change struct {
	Drives []*daemon.DriveStatus `json:"drives,omitempty"`
}

//
func driveListsEqual(a, b []*daemon.DriveStatus) bool {
	if len(a) != len(b) {
		return false
	}
	for ix := range a {
		if a[ix] == nil || b[ix] == nil {
			return a[ix] == b[ix]
		}
		if *a[ix] != *b[ix] {
			return false
		}
	}
	return true
}
