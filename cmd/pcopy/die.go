// die.go -- fatal and non-fatal error messages

package main

import (
	"fmt"
	"os"
)

// Die prints an error message to stderr and exits with status 1
func Die(f string, v ...interface{}) {
	Warn(f, v...)
	os.Exit(1)
}

// Warn prints an error message to stderr
func Warn(f string, v ...interface{}) {
	z := fmt.Sprintf("%s: %s", Z, f)
	s := fmt.Sprintf(z, v...)
	if n := len(s); s[n-1] != '\n' {
		s += "\n"
	}

	os.Stderr.WriteString(s)
	os.Stderr.Sync()
}
