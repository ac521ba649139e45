// Package retry implements the C2 retry policy: classifying filesystem and
// network errors as transient or permanent, and retrying transient ones with
// the strategy appropriate to the operation kind (§4.2).
package retry

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"os"
	"syscall"

	"github.com/kcenon/cleanupengine/internal/core"
)

// Classify maps a raw error from a filesystem operation to one of the
// engine's sentinel error kinds. A nil error classifies as nil. Unknown
// errors are treated as permanent — retrying an error we cannot name risks
// looping forever on something that will never succeed.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return core.ErrCancelled
	}

	if isTransient(err) {
		return core.ErrTransientIO
	}
	return core.ErrPermanentIO
}

// isTransient reports whether err represents a condition expected to clear
// on its own: resource exhaustion, contention, or a transient network
// disruption. Permission and not-exist errors are never transient — retrying
// them wastes the retry budget on an outcome that cannot change.
func isTransient(err error) bool {
	if errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrNotExist) {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EAGAIN, syscall.EBUSY, syscall.EMFILE, syscall.ENFILE, syscall.ENOSPC, syscall.EINTR:
			return true
		case syscall.EACCES, syscall.EPERM, syscall.ENOENT, syscall.EISDIR, syscall.ENOTDIR, syscall.ENOTEMPTY:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout() || isTemporary(netErr)
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return isTransient(pathErr.Err)
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return isTransient(linkErr.Err)
	}
	var syscallErr *os.SyscallError
	if errors.As(err, &syscallErr) {
		return isTransient(syscallErr.Err)
	}

	return false
}

// temporary is implemented by some historical net.Error values; it is no
// longer part of the net.Error interface itself but several error types in
// the wild still expose it.
type temporary interface {
	Temporary() bool
}

func isTemporary(err error) bool {
	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return false
}
