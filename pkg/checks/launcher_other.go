//go:build !windows

package checks

import "os/exec"

// Child processes never get a console window outside Windows.
func hideWindow(*exec.Cmd) {}
