//go:build !unix

package tools

import (
	"errors"
	"time"
)

func rusage() (user, system time.Duration) { return 0, 0 }

func uname() (sysname, release string) { return "", "" }

func signalTerm(pid int) error {
	return errors.New("signals are not supported on this platform")
}
