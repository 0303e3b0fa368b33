package mailer

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// LogSender writes messages to the log instead of delivering them. It is the
// development transport.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("mail delivered to log",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("tag", msg.Tag),
		zap.String("text", msg.Text),
	)
	return nil
}
