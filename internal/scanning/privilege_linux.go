//go:build linux

package scanning

import (
	"os"

	"golang.org/x/sys/unix"
)

// capNetRaw is CAP_NET_RAW from linux/capability.h.
const capNetRaw = 13

func hasRawSocketPrivilege() bool {
	if os.Geteuid() == 0 {
		return true
	}

	hdr := unix.CapUserHeader{Version: unix.LINUX_CAPABILITY_VERSION_3}
	var data [2]unix.CapUserData
	if err := unix.Capget(&hdr, &data[0]); err != nil {
		return false
	}
	return data[capNetRaw/32].Effective&(1<<(capNetRaw%32)) != 0
}
