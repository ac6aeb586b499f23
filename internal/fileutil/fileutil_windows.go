//go:build windows

package fileutil

import (
	"path/filepath"
	"syscall"
	"unsafe"
)

var (
	shell32              = syscall.NewLazyDLL("shell32.dll")
	procSHFileOperationW = shell32.NewProc("SHFileOperationW")
)

// FO_DELETE with the undo flag sends the file to the Recycle Bin instead
// of unlinking it.
const (
	opDelete      = 0x03
	flagAllowUndo = 0x40
	flagNoConfirm = 0x10
	flagSilent    = 0x04
	flagNoErrorUI = 0x400
)

// fileOpRequest mirrors the SHFILEOPSTRUCTW layout.
// https://learn.microsoft.com/en-us/windows/win32/api/shellapi/ns-shellapi-shfileopstructw
type fileOpRequest struct {
	hwnd                 uintptr
	op                   uint32
	from                 *uint16
	to                   *uint16
	flags                uint16
	anyOperationsAborted int32
	nameMappings         uintptr
	progressTitle        *uint16
}

// moveToWindowsTrash recycles one file. Return codes pass through
// shellOpError so a locked or missing file classifies as InUse or
// NotFound rather than an opaque failure.
func moveToWindowsTrash(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	// The from field holds a double-NUL-terminated list of paths.
	from, err := syscall.UTF16FromString(abs)
	if err != nil {
		return err
	}
	from = append(from, 0)

	req := fileOpRequest{
		op:    opDelete,
		from:  &from[0],
		flags: flagAllowUndo | flagNoConfirm | flagSilent | flagNoErrorUI,
	}

	ret, _, _ := procSHFileOperationW.Call(uintptr(unsafe.Pointer(&req)))
	return shellOpError(uint32(ret))
}
