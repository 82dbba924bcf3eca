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
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fdcplus/serialdisk/pkg/disk"
)

//
var ErrDaemonStopped = errors.New("daemon stopped")

/*
	Daemon serves disk images to the FDC+ over a serial line. All transactions
	are initiated by the FDC; the daemon processes strictly one at a time.
	Drive slots are mutated by mount and unmount only in between transactions,
	guarded by the drive table lock.
*/
type Daemon struct {
	//
	device string
	baud   uint
	//
	table   *driveTable
	conduit *conduit
	//
	stats    *stats
	listener Listener
	//
	stopped int32
}

//
func NewDaemon(device string, baud uint) *Daemon {
	return &Daemon{
		device: device,
		baud:   baud,
		table:  newDriveTable(),
		stats:  newStats(),
	}
}

// SetListener registers an optional observer for engine events. Must be set
// before Serve is called.
func (d *Daemon) SetListener(l Listener) {
	d.listener = l
}

//
func (d *Daemon) Serve() error {

	if err := d.resetConduit(); err != nil {
		return err
	}

	for {
		if d.isStopped() {
			d.shutdown()
			return ErrDaemonStopped
		}

		if err := d.process(); err != nil {
			if d.isStopped() {
				d.shutdown()
				return ErrDaemonStopped
			}
			log.Errorf("error receiving command: %v", err)
			d.recordError(err)
			if err := d.resetConduit(); err != nil {
				return err
			}
		}
	}
}

/*
	process runs one input cycle: accumulate a frame, validate its checksum,
	dispatch. A command frame with an invalid checksum is dropped without a
	response and never dispatched; the FDC retries the command on its own
	one second timeout.
*/
func (d *Daemon) process() error {

	f, err := d.conduit.receiveFrame()
	if err != nil {
		return err
	}
	if f == nil { // idle line, or discarded partial frame
		return nil
	}

	if !f.valid() {
		d.reject(fmt.Errorf(
			"dropping %q frame with invalid checksum: got %04x, want %04x",
			f.tag, f.checksum, f.sum))
		return nil
	}

	d.transact(f)
	return nil
}

// transact dispatches a single validated command frame, holding the drive
// table for the whole transaction.
func (d *Daemon) transact(f *frame) {

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if !d.table.lock(ctx) {
		d.reject(fmt.Errorf("drive table busy, dropping %q command", f.tag))
		return
	}
	defer d.table.unlock()

	if err := newCommand(f).dispatch(d); err != nil {
		log.Errorf("error dispatching command: %v", err)
		d.recordError(err)
	}
}

/*
	resetConduit closes the serial port if open and reopens it with the
	currently configured baud rate, backing off on failure. Any partially
	accumulated frame and any in-progress track data wait are discarded
	along with the old port.
*/
func (d *Daemon) resetConduit() error {

	if d.conduit != nil {
		log.Infof("closing port %s", d.device)
		if err := d.conduit.close(); err != nil {
			log.Errorf("error closing port: %v", err)
		}
		d.conduit = nil
	}

	maxBackoff := 15 * time.Second

	for backoff := time.Second; ; {
		if d.isStopped() {
			return ErrDaemonStopped
		}
		log.Infof("opening port %s at %d baud", d.device, d.baud)
		if con, err := newConduit(d.device, d.baud); err != nil {
			log.Errorf("cannot open serial port: %v", err)
			if backoff < maxBackoff {
				backoff *= 2
			}
			time.Sleep(backoff)
		} else {
			d.conduit = con
			return nil
		}
	}
}

// Stop makes the daemon release the serial port and all image handles, and
// exit from Serve.
func (d *Daemon) Stop() {
	atomic.StoreInt32(&d.stopped, 1)
	if c := d.conduit; c != nil {
		c.close() // unblocks the receive loop
	}
}

//
func (d *Daemon) isStopped() bool {
	return atomic.LoadInt32(&d.stopped) == 1
}

//
func (d *Daemon) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if d.table.lock(ctx) {
		defer d.table.unlock()
		d.table.closeAll()
	}
}

// event records a dispatched command.
func (d *Daemon) event(tag string, drive int) {
	d.stats.command(tag)
	if d.listener != nil {
		d.listener.OnCommand(tag, drive)
	}
}

//
func (d *Daemon) recordError(err error) {
	d.stats.error(err)
	if d.listener != nil {
		d.listener.OnError(err)
	}
}

// reject records a request that is dropped without a response; recovery is
// left entirely to the FDC's retry timer.
func (d *Daemon) reject(err error) error {
	log.Debugf("%v", err)
	d.recordError(err)
	return nil
}

/*
	Mount opens the disk image at path and mounts it into the 0-based drive
	slot. The image stays open for the lifetime of the mount; all track reads
	and writes go directly to it.
*/
func (d *Daemon) Mount(drv int, path string) error {

	img, err := disk.Open(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if !d.table.lock(ctx) {
		img.Close()
		return fmt.Errorf("could not lock drive table")
	}
	defer d.table.unlock()

	if err := d.table.mount(drv, img, filepath.Base(path)); err != nil {
		img.Close()
		return err
	}

	log.WithFields(log.Fields{
		"drive": drv, "image": filepath.Base(path)}).Info("mounted")
	return nil
}

// Unmount releases the image mounted in the 0-based drive slot.
func (d *Daemon) Unmount(drv int) error {

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if !d.table.lock(ctx) {
		return fmt.Errorf("could not lock drive table")
	}
	defer d.table.unlock()

	if err := d.table.unmount(drv); err != nil {
		return err
	}

	log.WithField("drive", drv).Info("unmounted")
	return nil
}

/*
	SetBaud switches the serial line to rate. The port is reset, which
	discards any partially accumulated frame; the FDC recovers via its own
	retries once it is switched to the same rate.
*/
func (d *Daemon) SetBaud(rate uint) error {
	if !ValidBaudRate(rate) {
		return fmt.Errorf("unsupported baud rate: %d", rate)
	}
	d.baud = rate
	log.Infof("switching to %d baud", rate)
	if c := d.conduit; c != nil {
		c.close() // serve loop reopens with the new rate
	}
	return nil
}

// DriveStatus describes one drive slot for status reporting.
type DriveStatus struct {
	Drive      int    `json:"drive"`
	Mounted    bool   `json:"mounted"`
	Image      string `json:"image,omitempty"`
	MaxTrack   uint16 `json:"maxTrack"`
	Track      uint16 `json:"track"`
	HeadLoaded bool   `json:"headLoaded"`
	Selected   bool   `json:"selected"`
}

// Status snapshots all drive slots, nil if the table is busy.
func (d *Daemon) Status() []*DriveStatus {

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if !d.table.lock(ctx) {
		return nil
	}
	defer d.table.unlock()

	ret := make([]*DriveStatus, DriveCount)
	for ix := range d.table.slots {
		s := &d.table.slots[ix]
		ret[ix] = &DriveStatus{
			Drive:      ix,
			Mounted:    s.mounted(),
			Image:      s.name,
			MaxTrack:   s.maxTrack,
			Track:      s.track,
			HeadLoaded: s.headLoaded,
			Selected:   s.selected,
		}
	}
	return ret
}

// Counters snapshots the daemon's metrics.
func (d *Daemon) Counters() *Counters {
	return d.stats.snapshot()
}
