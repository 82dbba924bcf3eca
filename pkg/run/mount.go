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
	"net/url"
)

//
func NewMount() *Mount {

	m := &Mount{}
	m.Runner = *NewRunner(
		"mount -d|--drive {drive} {image reference}",
		"mount a disk image into a drive",
		`
Use the mount command to mount a disk image into a drive of the daemon. The
image reference is resolved against the daemon's repo base folder; a 'repo://'
prefix is permitted.`,
		runnerHelpEpilogue, m.Run)

	m.AddBaseSettings()
	m.AddSetting(&m.Drive, "drive", "d", "", -1,
		"number of drive to mount into", false)

	return m
}

//
type Mount struct {
	//
	Runner
	//
	Drive int
}

//
func (m *Mount) Run() error {

	m.ParseSettings()

	if err := validateDrive(m.Drive); err != nil {
		return err
	}

	if len(m.Args) != 1 {
		return fmt.Errorf("need exactly one image reference")
	}

	resp, err := m.apiCall("PUT", fmt.Sprintf("/drive/%d?ref=%s",
		m.Drive, url.QueryEscape(m.Args[0])), false, nil)
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
