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
	"sync"
)

/*
	Listener receives engine events, meant for an optional display layer such
	as drive lights or a track position read-out. All callbacks run on the
	daemon goroutine and must not block. The daemon is fully operable without
	a listener.
*/
type Listener interface {
	OnCommand(tag string, drive int)
	OnError(err error)
}

// Counters is a snapshot of the daemon's metrics.
type Counters struct {
	Commands  map[string]uint64 `json:"commands"`
	Errors    uint64            `json:"errors"`
	LastError string            `json:"lastError,omitempty"`
}

//
type stats struct {
	mx        sync.Mutex
	commands  map[string]uint64
	errors    uint64
	lastError string
}

//
func newStats() *stats {
	return &stats{commands: map[string]uint64{}}
}

//
func (s *stats) command(tag string) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.commands[tag]++
}

//
func (s *stats) error(err error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.errors++
	s.lastError = err.Error()
}

//
func (s *stats) snapshot() *Counters {
	s.mx.Lock()
	defer s.mx.Unlock()
	cmds := make(map[string]uint64, len(s.commands))
	for k, v := range s.commands {
		cmds[k] = v
	}
	return &Counters{Commands: cmds, Errors: s.errors, LastError: s.lastError}
}
