//go:build unix

package process

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

func kill(p *os.Process) error {
	if err := unix.Kill(p.Pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}
