package scanning

import (
	scanerrors "github.com/anstrom/portscout/internal/errors"
)

// PrivilegeFunc reports whether the process may open raw sockets.
type PrivilegeFunc func() bool

// HasRawSocketPrivilege is the platform check: root or CAP_NET_RAW on Linux,
// root elsewhere on Unix, never on Windows.
var HasRawSocketPrivilege PrivilegeFunc = hasRawSocketPrivilege

// CheckPrivilege returns a PermissionDenied error when scanType needs raw
// socket rights that check says the process lacks.
func CheckPrivilege(scanType ScanType, check PrivilegeFunc) error {
	if !scanType.RequiresPrivilege() {
		return nil
	}
	if check == nil {
		check = HasRawSocketPrivilege
	}
	if !check() {
		return scanerrors.ErrPermissionDenied(string(scanType))
	}
	return nil
}
