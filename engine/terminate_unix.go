//go:build unix

package engine

import (
	"os"
	"syscall"
)

// terminate asks the server for a fast shutdown.
func terminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}
