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
	"os"
	"os/signal"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/fdcplus/serialdisk/pkg/control"
	"github.com/fdcplus/serialdisk/pkg/daemon"
)

//
func NewServe() *Serve {

	s := &Serve{}
	s.Runner = *NewRunner(
		`serve -d|--device {device} [-b|--baud {rate}] [-a|--address {address}]
      [-r|--repo {repo base folder}]`,
		"daemon & API server command",
		`Use the serve command for running the disk server daemon and API server. The
daemon serves disk images to the FDC+ over the given serial device, 8 data bits,
no parity, one stop bit, no flow control.`,
		`- Selectable baud rates are 230400, 403200 and 460800; 403200 is preferred,
  since it allows full-speed operation and is the most accurate of the three
  on the FDC.

- Logging can be configured with these environment variables:

  LOG_FORMAT		set to 'json' for JSON logging
  LOG_FORCE_COLORS	set to non-empty for forcing colorized log entries
  LOG_METHODS		set to non-empty for including methods in log
  LOG_LEVEL		panic, fatal, error, warn, info, debug, trace

`+runnerHelpEpilogue, s.Run)

	s.AddBaseSettings()
	s.AddSetting(&s.Device, "device", "d", "FDCPLUS_DEVICE", nil,
		"serial port device for the FDC+ line", true)
	s.AddSetting(&s.Baud, "baud", "b", "FDCPLUS_BAUD", daemon.DefaultBaudRate,
		"baud rate of the FDC+ line", false)
	s.AddSetting(&s.Address, "address", "a", "FDCPLUS_ADDRESS", nil,
		"listen address of the API server", false)
	s.AddSetting(&s.Repository, "repo", "r", "FDCPLUS_REPO", nil,
		`disk image repo base folder; when omitted, mounting
images from the daemon host's file system is prohibited`, false)

	return s
}

//
type Serve struct {
	//
	Runner
	//
	Device     string
	Baud       int
	Address    string
	Repository string
}

//
func (s *Serve) Run() error {

	s.ParseSettings()

	if !daemon.ValidBaudRate(uint(s.Baud)) {
		return fmt.Errorf(
			"unsupported baud rate: %d; supported rates are 230400, 403200 and 460800",
			s.Baud)
	}

	wg := &sync.WaitGroup{}
	wg.Add(2)

	d := daemon.NewDaemon(s.Device, uint(s.Baud))
	go func() {
		defer wg.Done()
		err := d.Serve()
		if err != nil && err != daemon.ErrDaemonStopped {
			log.Errorf("daemon closed with error: %v", err)
		} else {
			log.Info("daemon stopped")
		}
	}()

	api := control.NewAPIServer(s.Address, s.Repository, d)
	go func() {
		defer wg.Done()
		if err := api.Serve(); err != nil {
			log.Errorf("API server closed with error: %v", err)
		} else {
			log.Info("API server stopped")
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sigCount := 0
	done := make(chan bool)

	for {

		select {

		case sig := <-sigs: // interrupt signal
			log.WithField("signal", sig).Info("signal received")
			sigCount++

			switch sigCount {

			case 1:
				go func() {
					log.Info("shutting down, hit Ctrl-C twice to force exit...")
					api.Stop()
					d.Stop()
					wg.Wait()
					log.Info("SerialDisk stopped")
					done <- true
				}()

			case 2:
				log.Warn("shutdown in progress, hit Ctrl-C again to force exit")

			default:
				log.Warn("forcing daemon to stop immediately")
				os.Exit(1)
			}

		case <-done: // shutdown sequence complete
			return nil
		}
	}
}
