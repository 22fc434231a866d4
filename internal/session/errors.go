// ABOUTME: Error taxonomy for the connection session.
// ABOUTME: Sentinel errors for local failure modes; CommandRejectedError carries the remote message.

package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by SendCommand when no transport is open.
	ErrNotConnected = errors.New("not connected")

	// ErrHandshakeTimeout indicates the challenge/ok exchange did not
	// complete within the handshake budget.
	ErrHandshakeTimeout = errors.New("handshake timed out")

	// ErrCommandTimeout indicates no response arrived within the command
	// timeout window.
	ErrCommandTimeout = errors.New("command timed out")

	// ErrDisconnected rejects commands that were pending, or issued, while
	// the session tore down.
	ErrDisconnected = errors.New("disconnected")

	// ErrConnectInProgress is returned by Connect while a connect or an
	// established session is already active.
	ErrConnectInProgress = errors.New("connect already in progress")
)

// CommandRejectedError is a remote ok:false response to a command.
type CommandRejectedError struct {
	Method  string
	Message string
	Code    string
}

func (e *CommandRejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s rejected", e.Method)
	}
	return fmt.Sprintf("%s rejected: %s", e.Method, e.Message)
}
