// Package thread pins SDL work to the main OS thread where the
// platform requires it. macOS refuses window and audio calls off the
// first thread; everywhere else the indirection is skipped.
// See: https://github.com/golang/go/wiki/LockOSThread
package thread

import (
	"runtime"

	"github.com/faiface/mainthread"
)

var pinned = runtime.GOOS == "darwin"

// Wrap hands the program body to the main-thread dispatcher.
// Call once, from main.
func Wrap(body func()) {
	if pinned {
		mainthread.Run(body)
	} else {
		body()
	}
}

// Main runs f on the main thread and waits for it.
func Main(f func()) {
	if pinned {
		mainthread.Call(f)
	} else {
		f()
	}
}
