// fs.go: filesystem helpers for descriptor and cache persistence
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"os"
	"path/filepath"
)

// atomicWriteFile writes data to path through a sibling temp file and a
// rename, so a crash mid-write never leaves a truncated file behind.
func atomicWriteFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// dirModTime returns a directory's modification time in Unix
// milliseconds, or 0 when the directory cannot be stat'd.
func dirModTime(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.ModTime().UnixMilli()
}

// isHiddenFile reports whether a file name is hidden by dotfile
// convention. Scans skip these.
func isHiddenFile(name string) bool {
	base := filepath.Base(name)
	return len(base) > 0 && base[0] == '.'
}
