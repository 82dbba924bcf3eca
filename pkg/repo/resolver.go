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
	"fmt"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// PrefixRepoRef marks an image reference relative to the repo base folder.
const PrefixRepoRef = "repo://"

/*
	Resolve maps an image reference to a path on the daemon host. References
	are confined to the repo base folder; when no repo is configured, mounting
	images from the daemon host's file system is prohibited.
*/
func Resolve(ref, repo string) (string, error) {

	log.WithFields(log.Fields{
		"reference":  ref,
		"repository": repo,
	}).Debug("resolving ref")

	if repo == "" {
		return "", fmt.Errorf("image repository is not enabled")
	}

	ref = strings.TrimPrefix(ref, PrefixRepoRef)
	return filepath.Join(repo, filepath.Clean("/"+ref)), nil
}

//
func IsReference(r string) bool {
	return strings.HasPrefix(r, PrefixRepoRef)
}
