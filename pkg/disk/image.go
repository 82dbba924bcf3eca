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

package disk

import (
	"fmt"
	"io"
	"os"
)

// Image is the storage surface the daemon needs from a mounted disk image.
// Writes go straight through to the backing file.
type Image interface {
	Size() (int64, error)
	Seek(offset int64) error
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)
	Close() error
}

// Open opens the disk image at path for reading and writing.
func Open(path string) (Image, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("cannot open disk image: %v", err)
	}
	return &fileImage{file: f}, nil
}

//
type fileImage struct {
	file *os.File
}

//
func (i *fileImage) Size() (int64, error) {
	info, err := i.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

//
func (i *fileImage) Seek(offset int64) error {
	_, err := i.file.Seek(offset, io.SeekStart)
	return err
}

//
func (i *fileImage) Read(buf []byte) (int, error) {
	return i.file.Read(buf)
}

//
func (i *fileImage) Write(buf []byte) (int, error) {
	return i.file.Write(buf)
}

//
func (i *fileImage) Close() error {
	return i.file.Close()
}

/*
	MaxTrack derives the highest valid track number from the image size:
	standard 8" Altair images below 200000 bytes have 35 tracks, Minidisk
	images below 500000 bytes have 77, anything larger is served as a 2048
	track image.
*/
func MaxTrack(size int64) uint16 {
	switch {
	case size < 200000:
		return 34
	case size < 500000:
		return 76
	default:
		return 2047
	}
}
