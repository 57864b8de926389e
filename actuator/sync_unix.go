//go:build unix

package actuator

import "syscall"

// syncFilesystems flushes dirty pages so drop_caches can free them.
func syncFilesystems() {
	syscall.Sync()
}
