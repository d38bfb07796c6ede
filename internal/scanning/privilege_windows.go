//go:build windows

package scanning

// udp and semi-open scans are not supported on Windows.
func hasRawSocketPrivilege() bool {
	return false
}
