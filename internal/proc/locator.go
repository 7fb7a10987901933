package proc

import (
	gnet "github.com/shirou/gopsutil/v4/net"
)

// FindPIDByPort enumerates listening TCP sockets and returns the PID of the
// first process bound to port. Multiple owners are tolerated (first match
// wins) and absence is not an error: the second return is false when nothing
// is bound or the socket table cannot be read.
func FindPIDByPort(port int) (int, bool) {
	conns, err := gnet.Connections("tcp")
	if err != nil {
		return 0, false
	}
	for _, c := range conns {
		if c.Status == "LISTEN" && c.Laddr.Port == uint32(port) && c.Pid > 0 {
			return int(c.Pid), true
		}
	}
	return 0, false
}
