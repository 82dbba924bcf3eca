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

package run

import (
	"fmt"
	"io/ioutil"
)

//
func NewUnmount() *Unmount {

	u := &Unmount{}
	u.Runner = *NewRunner(
		"unmount -d|--drive {drive}",
		"unmount the disk image from a drive",
		`
Use the unmount command to unmount the disk image from a drive of the daemon.
The image file on the daemon host already contains all completed writes; there
is nothing to save.`,
		runnerHelpEpilogue, u.Run)

	u.AddBaseSettings()
	u.AddSetting(&u.Drive, "drive", "d", "", -1,
		"number of drive to unmount", false)

	return u
}

//
type Unmount struct {
	//
	Runner
	//
	Drive int
}

//
func (u *Unmount) Run() error {

	u.ParseSettings()

	if err := validateDrive(u.Drive); err != nil {
		return err
	}

	resp, err := u.apiCall(
		"GET", fmt.Sprintf("/drive/%d/unmount", u.Drive), false, nil)
	if err != nil {
		return err
	}
	defer resp.Close()

	msg, err := ioutil.ReadAll(resp)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", msg)
	return nil
}
