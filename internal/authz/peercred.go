package authz

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// PeerUID extracts the connecting process's real uid from a Unix domain
// socket connection via SO_PEERCRED, the kernel-enforced equivalent of
// D-Bus's GetConnectionUnixUser.
func PeerUID(conn *net.UnixConn) (uint32, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return 0, fmt.Errorf("obtaining raw connection: %w", err)
	}

	var ucred *unix.Ucred
	var sockErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		ucred, sockErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if ctrlErr != nil {
		return 0, fmt.Errorf("reading socket fd: %w", ctrlErr)
	}
	if sockErr != nil {
		return 0, fmt.Errorf("SO_PEERCRED lookup failed: %w", sockErr)
	}
	return ucred.Uid, nil
}
