//go:build unix

package supervisor

import "syscall"

// detachedAttr starts the child in a new session so it survives the server
// and does not receive terminal signals meant for it.
func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
