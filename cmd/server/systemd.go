package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/oasis/internal/training"
)

var errNoNotifySocket = errors.New("NOTIFY_SOCKET not set")

// sdNotify sends newline-joined states to the socket systemd hands Type=notify
// units. The net package maps a leading '@' to an abstract socket on linux.
func sdNotify(ctx context.Context, states ...string) error {
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return errNoNotifySocket
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unixgram", addr)
	if err != nil {
		return fmt.Errorf("sd_notify dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.Write([]byte(strings.Join(states, "\n"))); err != nil {
		return fmt.Errorf("sd_notify write: %w", err)
	}
	return nil
}

// announce reports states to systemd. Failures are logged, never fatal:
// outside a notify unit there is nobody listening.
func announce(ctx context.Context, L log.Logger, states ...string) {
	err := sdNotify(ctx, states...)
	switch {
	case err == nil:
	case errors.Is(err, errNoNotifySocket):
		L.Debug(ctx, "not running under systemd notify", "states", states)
	default:
		L.Warn(ctx, "systemd notify failed", "states", states, "error", err)
	}
}

// readyState is the READY message plus a status line naming the loaded model.
func readyState(b *training.Bundle) []string {
	status := "STATUS=triaging"
	if b != nil && b.Model != nil {
		status += fmt.Sprintf(" with depth-%d tree (%d leaves)", b.Model.Depth(), b.Model.Leaves())
	}
	if b != nil && b.Report != nil && b.Report.Samples > 0 {
		status += fmt.Sprintf(", holdout accuracy %.2f", b.Report.Accuracy)
	}
	return []string{"READY=1", status}
}
