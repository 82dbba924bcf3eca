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
func NewConfig() *Config {

	c := &Config{}
	c.Runner = *NewRunner(
		"config [-b|--baud {rate}]",
		"change configuration of the daemon",
		`
Use the config command to change settings in the daemon. Switching the baud
rate resets the serial line; the FDC needs to be switched to the same rate.`,
		runnerHelpEpilogue, c.Run)

	c.AddBaseSettings()
	c.AddSetting(&c.Baud, "baud", "b", "", -1,
		"baud rate of the FDC+ line (230400, 403200 or 460800)", false)

	return c
}

//
type Config struct {
	//
	Runner
	//
	Baud int
}

//
func (c *Config) Run() error {

	c.ParseSettings()

	if c.Baud == -1 {
		fmt.Println("\nnothing to configure")
		return nil
	}

	resp, err := c.apiCall("PUT",
		fmt.Sprintf("/config?baud=%d", c.Baud), false, nil)
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
