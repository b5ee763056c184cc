package busserver

import (
	"net"

	"github.com/rhel-lightspeed/command-line-assistant/internal/authz"
)

func defaultPeerUID(conn *net.UnixConn) (uint32, error) {
	return authz.PeerUID(conn)
}
