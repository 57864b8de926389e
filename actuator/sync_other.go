//go:build !unix

package actuator

func syncFilesystems() {}
