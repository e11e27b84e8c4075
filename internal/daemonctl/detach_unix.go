//go:build unix

package daemonctl

import "syscall"

// sysProcAttr detaches the daemon into its own session so it survives the
// CLI process and its controlling terminal.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
