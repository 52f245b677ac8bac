//go:build !unix

package engine

import "os"

// terminate stops the server process. Windows has no SIGTERM, so the
// process is killed outright; storage is removed afterwards anyway.
func terminate(p *os.Process) error {
	return p.Kill()
}
