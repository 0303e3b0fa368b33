package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/xxxsen/hemline/internal/mailer"
)

var ErrSendFailed = errors.New("send failed")

// RecordingSender keeps every message it is asked to send.
type RecordingSender struct {
	mu       sync.Mutex
	messages []mailer.Message
	fail     bool
}

func (s *RecordingSender) Send(ctx context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return ErrSendFailed
	}
	s.messages = append(s.messages, msg)
	return nil
}

// FailAll makes every later Send return ErrSendFailed.
func (s *RecordingSender) FailAll(fail bool) {
	s.mu.Lock()
	s.fail = fail
	s.mu.Unlock()
}

func (s *RecordingSender) Messages() []mailer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mailer.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// ByTag returns the messages labelled with tag.
func (s *RecordingSender) ByTag(tag string) []mailer.Message {
	var out []mailer.Message
	for _, msg := range s.Messages() {
		if msg.Tag == tag {
			out = append(out, msg)
		}
	}
	return out
}
