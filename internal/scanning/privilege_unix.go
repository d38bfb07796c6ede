//go:build !linux && !windows

package scanning

import "os"

func hasRawSocketPrivilege() bool {
	return os.Geteuid() == 0
}
