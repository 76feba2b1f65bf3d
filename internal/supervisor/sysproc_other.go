//go:build !unix

package supervisor

import "syscall"

func detachedAttr() *syscall.SysProcAttr { return nil }
