// Package systemd integrates the agent with the service manager when it
// runs as a unit. Outside systemd the calls are silent no-ops.
package systemd

import (
	"fmt"

	"github.com/coreos/go-systemd/v22/daemon"
)

// NotifyReady tells the service manager the agent is up and serving.
func NotifyReady() error {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		return fmt.Errorf("sd_notify ready: %w", err)
	}
	return nil
}

// NotifyStopping tells the service manager a shutdown has begun.
func NotifyStopping() error {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		return fmt.Errorf("sd_notify stopping: %w", err)
	}
	return nil
}
