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

package main

import (
	"fmt"
	"os"

	"github.com/fdcplus/serialdisk/pkg/run"
)

//
var SerialDiskVersion string

//
func synopsis() {
	fmt.Print(`
synopsis: fdcctl {serve|mount|unmount|ls|status|config|version} ...

run 'fdcctl {action} -h|--help' to see detailed info

`)
}

//
func version() {
	fmt.Printf("\nSerialDisk %s\n\n", SerialDiskVersion)
}

//
func main() {

	var action string
	var args []string

	if len(os.Args) > 1 {
		action = os.Args[1]
	}

	if len(os.Args) > 2 {
		args = os.Args[2:]
	}

	switch action {

	case "serve":
		version()
		run.DieOnError(run.NewServe().Execute(args))

	case "mount":
		run.DieOnError(run.NewMount().Execute(args))

	case "unmount":
		run.DieOnError(run.NewUnmount().Execute(args))

	case "ls":
		run.DieOnError(run.NewList().Execute(args))

	case "status":
		run.DieOnError(run.NewStatus().Execute(args))

	case "config":
		run.DieOnError(run.NewConfig().Execute(args))

	case "version":
		version()

	case "":
		fallthrough
	case "-h":
		fallthrough
	case "--help":
		synopsis()

	default:
		run.Die("unknown action: %s\n", action)
	}
}
