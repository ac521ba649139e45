//go:build windows

package scanner

import (
	"os"

	"golang.org/x/sys/windows"
)

// deviceID on Windows reads the volume serial number via
// GetFileInformationByHandle.
// Device identity on Windows is a property of an open handle, not of
// os.FileInfo.Sys(), so the path is opened directly here.
func deviceID(path string, info os.FileInfo) (uint64, bool) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, false
	}
	h, err := windows.CreateFile(p, windows.GENERIC_READ, windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil, windows.OPEN_EXISTING, windows.FILE_FLAG_BACKUP_SEMANTICS, 0)
	if err != nil {
		return 0, false
	}
	defer windows.CloseHandle(h)

	var fi windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(h, &fi); err != nil {
		return 0, false
	}
	return uint64(fi.VolumeSerialNumber), true
}
