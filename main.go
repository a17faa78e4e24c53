/*
Interactive GPU fractal viewer. All rendering happens in the fragment
shader; the engine package drives the window, input and frame loop.
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/fractal/engine"
)

const defaultConfigPath = "viewer.toml"

func main() {
	configPath := defaultConfigPath
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	e, err := engine.New(configPath)
	if err != nil {
		panic(err)
	}

	if err := e.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		// Teardown is not thread-safe against the render loop; just ask it
		// to stop and let Run's exit path shut everything down.
		e.RequestExit()
	}()

	if err := e.Run(); err != nil {
		panic(err)
	}
}
