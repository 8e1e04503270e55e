package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/erichter2018/MosaicTools-sub001/pkg/protocol"
)

// clientTimeout bounds one request/response exchange with the daemon.
const clientTimeout = 5 * time.Second

// roundTrip sends one control message to the daemon socket and returns the
// ACK. Each call uses a fresh connection.
func roundTrip(socketPath string, msg protocol.Message) (*protocol.ACKPayload, error) {
	conn, err := net.DialTimeout("unix", socketPath, clientTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect to mosaicd at %s: %w", socketPath, err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetDeadline(time.Now().Add(clientTimeout))

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return nil, fmt.Errorf("send %s: %w", msg.Type, err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read reply: %w", err)
		}
		return nil, fmt.Errorf("daemon closed connection without reply")
	}

	var reply protocol.Message
	if err := json.Unmarshal(scanner.Bytes(), &reply); err != nil {
		return nil, fmt.Errorf("parse reply: %w", err)
	}
	if reply.Type != protocol.MsgACK || reply.ACK == nil {
		return nil, fmt.Errorf("unexpected reply type %q", reply.Type)
	}
	return reply.ACK, nil
}
