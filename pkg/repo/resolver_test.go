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

package repo

import (
	"testing"
)

func TestResolve(t *testing.T) {

	cases := []struct {
		name string
		ref  string
		repo string
		want string
	}{
		{"plain ref", "altair/cpm22.dsk", "/images", "/images/altair/cpm22.dsk"},
		{"repo prefix", "repo://cpm22.dsk", "/images", "/images/cpm22.dsk"},
		{"escape confined", "../../etc/passwd", "/images", "/images/etc/passwd"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Resolve(c.ref, c.repo)
			if err != nil {
				t.Fatalf("resolve failed: %v", err)
			}
			if got != c.want {
				t.Errorf("got %s, want %s", got, c.want)
			}
		})
	}
}

func TestResolveNoRepo(t *testing.T) {
	if _, err := Resolve("cpm22.dsk", ""); err == nil {
		t.Error("no error without repository")
	}
}

func TestIsReference(t *testing.T) {
	if !IsReference("repo://a.dsk") {
		t.Error("repo ref not recognized")
	}
	if IsReference("/tmp/a.dsk") {
		t.Error("plain path taken for repo ref")
	}
}
