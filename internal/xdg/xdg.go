// Copyright ©2023 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xdg finds configuration files in the platform's user and system
// configuration directories.
package xdg

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Config returns the path to the first of the named files found in the
// user's configuration directory obtained from ConfigHome or, if local is
// false, in the system configuration directories obtained from ConfigDirs.
// Names are searched in order within each directory. If no file is found
// Config returns an error wrapping fs.ErrNotExist.
func Config(names []string, local bool) (string, error) {
	var dirs []string
	if home, ok := ConfigHome(); ok {
		dirs = append(dirs, home)
	}
	if !local {
		if list, ok := ConfigDirs(); ok {
			dirs = append(dirs, filepath.SplitList(list)...)
		}
	}
	for _, dir := range dirs {
		for _, name := range names {
			path := filepath.Join(dir, name)
			fi, err := os.Stat(path)
			if err == nil && fi.Mode().IsRegular() {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("no configuration file (%s): %w", strings.Join(names, ", "), fs.ErrNotExist)
}

// ConfigHome returns the path corresponding to XDG_CONFIG_HOME.
func ConfigHome() (string, bool) {
	return envOrDefault(configHomeKey, configHomeDefault, homeKey)
}

// ConfigDirs returns the path list corresponding to XDG_CONFIG_DIRS.
func ConfigDirs() (string, bool) {
	return envOrDefault(configDirsKey, configDirsDefault, "")
}

// envOrDefault returns the path or path list held by the key environment
// variable, or def if key is empty or not set. A relative def is taken to be
// relative to the directory in the home environment variable.
func envOrDefault(key, def, home string) (string, bool) {
	if key != "" {
		val, ok := os.LookupEnv(key)
		if ok && val != "" {
			return val, true
		}
	}
	if def == "" {
		return "", false
	}
	if home == "" || filepath.IsAbs(def) {
		return def, true
	}
	base, ok := os.LookupEnv(home)
	if !ok {
		return "", false
	}
	return filepath.Join(base, def), true
}
