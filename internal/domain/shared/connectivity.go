package shared

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"syscall"
)

// IsConnectivityError reports whether err means the backing store could not be reached.
// Such errors switch callers to their degraded path instead of failing the user.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// WrapConnectivity tags raw transport failures with ErrUnavailable so upper layers
// can classify them without knowing the driver. Other errors are returned untouched.
func WrapConnectivity(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	if IsConnectivityError(err) {
		return ErrUnavailable.Wrap(err)
	}
	return err
}
