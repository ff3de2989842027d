// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// checkPeer rejects connections from other users. SO_PEERCRED reports
// the credentials of the process that called connect(2); the check
// holds regardless of the socket file's mode bits or directory layout.
func checkPeer(conn net.Conn) error {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return fmt.Errorf("connection is %T, not a unix socket", conn)
	}

	rawConn, err := unixConn.SyscallConn()
	if err != nil {
		return fmt.Errorf("accessing raw connection: %w", err)
	}

	var cred *unix.Ucred
	var credErr error
	if err := rawConn.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return fmt.Errorf("reading peer credentials: %w", err)
	}
	if credErr != nil {
		return fmt.Errorf("reading peer credentials: %w", credErr)
	}

	if serverUID := os.Getuid(); int(cred.Uid) != serverUID {
		return fmt.Errorf("peer uid %d does not match server uid %d", cred.Uid, serverUID)
	}
	return nil
}
