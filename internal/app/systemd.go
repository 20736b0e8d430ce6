package app

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	rtsup "motivator/internal/runtime/supervisor"
	logx "motivator/pkg/logx"
)

// startSystemd reports readiness and, when the unit sets WatchdogSec, pings
// the watchdog at half the interval. Both are no-ops outside systemd.
func (a *App) startSystemd(sup *rtsup.Supervisor) {
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("sd_notify ready failed", logx.Err(err))
	} else if ok {
		a.log.Debug("sd_notify ready sent")
	}

	every, err := daemon.SdWatchdogEnabled(false)
	if err != nil || every <= 0 {
		return
	}
	every /= 2
	sup.Go0("systemd.watchdog", func(ctx context.Context) {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := a.store.Ping(ctx); err != nil {
					// Skip the ping so systemd restarts a unit whose database is gone.
					a.log.Warn("watchdog: store unhealthy", logx.Err(err))
					continue
				}
				_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	})
}

func notifyStopping() {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
}
