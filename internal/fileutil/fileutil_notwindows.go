//go:build !windows

package fileutil

import "errors"

// moveToWindowsTrash only exists so MoveToTrash compiles everywhere; the
// GOOS switch never routes here off Windows.
func moveToWindowsTrash(path string) error {
	return errors.New("recycle bin unavailable on this platform")
}
