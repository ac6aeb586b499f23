// Package fileutil removes or relocates duplicate files on behalf of the
// clean command. The scan engine itself never deletes anything.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/timfernix/duplicate-finder/internal/models"
)

// Classify maps a removal error onto the per-path deletion outcomes. A nil
// error is a successful deletion; every other outcome is independent per
// path and never aborts a batch.
func Classify(err error) models.DeleteOutcome {
	switch {
	case err == nil:
		return models.Deleted
	case errors.Is(err, fs.ErrNotExist):
		return models.NotFound
	case errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.ETXTBSY):
		return models.InUse
	default:
		return models.PermissionDenied
	}
}

// Return codes of the Windows shell delete operation. SHFileOperationW
// reports Win32 error codes plus its own DE_* range; these are the ones
// that carry outcome information.
const (
	winFileNotFound     = 0x02 // ERROR_FILE_NOT_FOUND
	winPathNotFound     = 0x03 // ERROR_PATH_NOT_FOUND
	winAccessDenied     = 0x05 // ERROR_ACCESS_DENIED
	winSharingViolation = 0x20 // ERROR_SHARING_VIOLATION
	winLockViolation    = 0x21 // ERROR_LOCK_VIOLATION
	deAccessDeniedSrc   = 0x78 // DE_ACCESSDENIEDSRC
	deInvalidFiles      = 0x7C // DE_INVALIDFILES
)

// shellOpError converts a shell delete return code into an error Classify
// maps onto the matching outcome: a locked file reports InUse, a missing
// path NotFound. Zero is success. The mapping lives here rather than in
// the windows build file so it is covered by tests on every platform.
func shellOpError(code uint32) error {
	switch code {
	case 0:
		return nil
	case winSharingViolation, winLockViolation:
		return fmt.Errorf("recycle bin: file in use (code %#x): %w", code, syscall.EBUSY)
	case winFileNotFound, winPathNotFound, deInvalidFiles:
		return fmt.Errorf("recycle bin: path not found (code %#x): %w", code, fs.ErrNotExist)
	case winAccessDenied, deAccessDeniedSrc:
		return fmt.Errorf("recycle bin: access denied (code %#x): %w", code, fs.ErrPermission)
	default:
		return fmt.Errorf("recycle bin operation failed with code %#x", code)
	}
}

// MoveFile relocates a duplicate into destDir without ever overwriting
// what is already there: name collisions get a numeric suffix.
func MoveFile(src, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}

	name := findUniqueName(filepath.Base(src), func(candidate string) bool {
		_, err := os.Stat(filepath.Join(destDir, candidate))
		return os.IsNotExist(err)
	})

	return renameOrCopy(src, filepath.Join(destDir, name))
}

// findUniqueName appends _1, _2, ... before the extension until
// isAvailable accepts the candidate.
func findUniqueName(filename string, isAvailable func(string) bool) string {
	if isAvailable(filename) {
		return filename
	}

	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if isAvailable(candidate) {
			return candidate
		}
	}
}

// renameOrCopy moves a file, degrading to copy+remove when source and
// destination sit on different filesystems.
func renameOrCopy(src, dest string) error {
	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}

	var linkErr *os.LinkError
	if errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		if err := copyFile(src, dest); err != nil {
			return err
		}
		return os.Remove(src)
	}
	return err
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		os.Remove(dest)
		return err
	}
	return nil
}

// MoveToTrash sends a file to the platform trash: the freedesktop.org
// Trash directory on Linux, ~/.Trash on macOS, the Recycle Bin on
// Windows. Other platforms fall back to a folder under the user's home.
func MoveToTrash(src string) error {
	switch runtime.GOOS {
	case "windows":
		return moveToWindowsTrash(src)
	case "linux":
		dir, err := trashDir()
		if err != nil {
			return err
		}
		return moveToLinuxTrash(src, dir)
	default:
		dir, err := trashDir()
		if err != nil {
			return err
		}
		return MoveFile(src, dir)
	}
}

func trashDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	var dir string
	switch runtime.GOOS {
	case "darwin":
		dir = filepath.Join(home, ".Trash")
	case "linux":
		dir = filepath.Join(home, ".local", "share", "Trash", "files")
	default:
		dir = filepath.Join(home, "duplicate-finder_trash")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create trash directory: %w", err)
	}
	return dir, nil
}

// moveToLinuxTrash follows the freedesktop.org trash spec: the file lands
// in Trash/files and a matching .trashinfo records its origin so a file
// manager can restore it. The unique name must be free in both
// directories at once.
func moveToLinuxTrash(src, trashFilesDir string) error {
	home, _ := os.UserHomeDir()
	infoDir := filepath.Join(home, ".local", "share", "Trash", "info")
	if err := os.MkdirAll(infoDir, 0755); err != nil {
		return err
	}

	absPath, err := filepath.Abs(src)
	if err != nil {
		return err
	}

	name := findUniqueName(filepath.Base(src), func(candidate string) bool {
		_, errFile := os.Stat(filepath.Join(trashFilesDir, candidate))
		_, errInfo := os.Stat(filepath.Join(infoDir, candidate+".trashinfo"))
		return os.IsNotExist(errFile) && os.IsNotExist(errInfo)
	})

	infoPath := filepath.Join(infoDir, name+".trashinfo")
	info := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		absPath, time.Now().Format("2006-01-02T15:04:05"))
	if err := os.WriteFile(infoPath, []byte(info), 0644); err != nil {
		return err
	}

	if err := renameOrCopy(src, filepath.Join(trashFilesDir, name)); err != nil {
		os.Remove(infoPath)
		return err
	}
	return nil
}
