package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jonathan/forgecv/internal/syncproto"
	"github.com/jonathan/forgecv/internal/types"
)

const notifyTimeout = 2 * time.Second

// notifyWorkspace tells a running `forgecv serve` that the tailored resume changed so the editor
// and preview pick it up. Nothing happens when no workspace is listening on addr.
func notifyWorkspace(ctx context.Context, addr string, resume *types.Resume) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	conn, err := syncproto.Dial(ctx, syncURL(addr), syncproto.NewView(""))
	if err != nil {
		slog.Debug("no workspace to notify", "addr", addr, "error", err)
		return
	}
	defer conn.Close() //nolint:errcheck
	if err := conn.Publish(syncproto.TypeResumeUpdate, &syncproto.Payload{Resume: resume}); err != nil {
		slog.Warn("failed to notify workspace", "addr", addr, "error", err)
	}
}

func syncURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "ws://" + addr + "/sync/ws"
}
