package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"smsglue/internal/metrics"
	"smsglue/internal/models"
	"smsglue/internal/util"
)

// NotifyResult summarizes one fan-out.
type NotifyResult struct {
	Attempted int
	Delivered int
	Pruned    int
}

// Notifier pushes a wake-up to every registered device and drops the devices
// whose push failed.
type Notifier struct {
	registry    *DeviceRegistry
	push        PushAPI
	concurrency int
	logger      *zap.Logger
}

func NewNotifier(registry *DeviceRegistry, push PushAPI, concurrency int, logger *zap.Logger) *Notifier {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Notifier{
		registry:    registry,
		push:        push,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Notify returns once every device has reported. The device list is
// snapshotted first; devices registered meanwhile are not part of this run.
func (n *Notifier) Notify(ctx context.Context, id string) NotifyResult {
	// Pushes finish even if the webhook caller hangs up.
	ctx = context.WithoutCancel(ctx)

	devices, err := n.registry.List(ctx, id)
	if err != nil {
		n.logger.Error("Failed to load devices for notification",
			util.Identifier("id", id),
			util.ErrorField(err))
		return NotifyResult{}
	}
	if len(devices) == 0 {
		return NotifyResult{}
	}

	delivered := make([]bool, len(devices))

	var g errgroup.Group
	g.SetLimit(n.concurrency)
	for i, device := range devices {
		g.Go(func() error {
			if err := n.push.Notify(ctx, device); err != nil {
				metrics.PushDeliveries.WithLabelValues("failed").Inc()
				n.logger.Info("Push failed",
					util.Identifier("id", id),
					util.String("app_id", device.AppID),
					util.ErrorField(err))
				return nil
			}
			metrics.PushDeliveries.WithLabelValues("delivered").Inc()
			delivered[i] = true
			return nil
		})
	}
	_ = g.Wait()

	survivors := make([]models.DeviceRegistration, 0, len(devices))
	for i, ok := range delivered {
		if ok {
			survivors = append(survivors, devices[i])
		}
	}

	result := NotifyResult{
		Attempted: len(devices),
		Delivered: len(survivors),
		Pruned:    len(devices) - len(survivors),
	}

	if result.Pruned > 0 {
		if err := n.registry.Prune(ctx, id, survivors); err != nil {
			n.logger.Warn("Failed to prune devices",
				util.Identifier("id", id),
				util.ErrorField(err))
		} else {
			metrics.DevicesPruned.Add(float64(result.Pruned))
		}
	}

	n.logger.Info("Notification fan-out complete",
		util.Identifier("id", id),
		util.Int("attempted", result.Attempted),
		util.Int("delivered", result.Delivered),
		util.Int("pruned", result.Pruned))
	return result
}
