package main

import (
	"context"
	"os"
	"time"

	"github.com/yanun0323/logs"

	"github.com/tianhm/nautilus-trader/internal/ops"
)

// watchConfig reloads path whenever its modification time advances and hands the result to update.
func watchConfig(ctx context.Context, path string, interval time.Duration, update func(ops.Loaded)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastMod time.Time
	if info, err := os.Stat(path); err == nil {
		lastMod = info.ModTime()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil {
				logs.Warnf("config stat failed, err: %+v", err)
				continue
			}
			if !info.ModTime().After(lastMod) {
				continue
			}
			loaded, err := ops.Load(path)
			if err != nil {
				logs.Warnf("config reload failed, err: %+v", err)
				continue
			}
			update(loaded)
			lastMod = info.ModTime()
			logs.Infof("config reloaded: %s", path)
		}
	}
}
