package notify

import (
	"context"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hemline/internal/mailer"
	"github.com/xxxsen/hemline/internal/metrics"
)

const defaultSendTimeout = 30 * time.Second

// Notifier delivers notifications in the background. Delivery failures are
// logged and counted, never returned to the caller.
type Notifier struct {
	sender   mailer.Sender
	renderer *Renderer
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewNotifier(sender mailer.Sender, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &Notifier{sender: sender, renderer: NewRenderer(), timeout: timeout}
}

func (n *Notifier) Dispatch(ctx context.Context, notification Notification) {
	if notification == nil {
		return
	}
	// the request may finish before delivery does
	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.deliver(ctx, notification)
	}()
}

func (n *Notifier) deliver(ctx context.Context, notification Notification) {
	logger := logutil.GetLogger(ctx).With(
		zap.String("kind", notification.Kind()),
		zap.String("to", notification.Recipient()),
	)
	defer func() {
		if p := recover(); p != nil {
			metrics.Notification(notification.Kind(), metrics.ResultError)
			logger.Error("notification panicked", zap.Any("panic", p))
		}
	}()
	msg, err := n.renderer.Render(notification)
	if err != nil {
		metrics.Notification(notification.Kind(), metrics.ResultError)
		logger.Error("render notification failed", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := n.sender.Send(ctx, msg); err != nil {
		metrics.Notification(notification.Kind(), metrics.ResultError)
		logger.Warn("send notification failed", zap.Error(err))
		return
	}
	metrics.Notification(notification.Kind(), metrics.ResultOK)
	logger.Debug("notification sent")
}

// Wait blocks until every dispatched notification has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
