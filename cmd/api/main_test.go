package main

import (
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForShutdownOnSignal(t *testing.T) {
	stop := make(chan os.Signal, 1)
	serverErr := make(chan error, 1)
	stop <- syscall.SIGTERM

	assert.NoError(t, waitForShutdown(stop, serverErr))
}

func TestWaitForShutdownWhenListenFails(t *testing.T) {
	// Hold the port so Listen cannot bind it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	stop := make(chan os.Signal, 1)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.Listen(ln.Addr().String())
	}()

	err = waitForShutdown(stop, serverErr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")
}

func TestWaitForShutdownWhenListenReturnsNil(t *testing.T) {
	stop := make(chan os.Signal, 1)
	serverErr := make(chan error, 1)
	serverErr <- nil

	assert.EqualError(t, waitForShutdown(stop, serverErr), "server stopped unexpectedly")
}
