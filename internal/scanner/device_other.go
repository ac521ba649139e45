//go:build !unix && !windows

package scanner

import "os"

// deviceID is a no-op on platforms with neither a Unix nor a Windows
// implementation; CrossMounts detection degrades to always-same-device.
func deviceID(path string, info os.FileInfo) (uint64, bool) {
	return 0, false
}
