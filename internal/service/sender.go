package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"smsglue/internal/metrics"
	"smsglue/internal/models"
	"smsglue/internal/util"
)

// SegmentLength is the longest text a single sendSMS call accepts.
const SegmentLength = 160

// Sender validates outbound messages and sends them segment by segment.
// Sends are not idempotent; callers must not retry blindly.
type Sender struct {
	telephony TelephonyAPI
	logger    *zap.Logger
}

func NewSender(telephony TelephonyAPI, logger *zap.Logger) *Sender {
	return &Sender{telephony: telephony, logger: logger}
}

// NormalizeDestination strips formatting and a leading country code 1.
func NormalizeDestination(dst string) (string, bool) {
	digits := util.DigitsOnly(dst)
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits, len(digits) == 10
}

// SplitSegments cuts text into consecutive pieces of at most size characters.
func SplitSegments(text string, size int) []string {
	if text == "" || size < 1 {
		return nil
	}
	segments := make([]string, 0, utf8.RuneCountInString(text)/size+1)
	runes := []rune(text)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		segments = append(segments, string(runes[start:end]))
	}
	return segments
}

// Send delivers text, trimmed of surrounding whitespace, to dst. Segments go
// out strictly in order and the first failure stops the rest.
func (s *Sender) Send(ctx context.Context, account models.Account, dst, text string) error {
	if !account.Valid() {
		return ErrInvalidParameters
	}
	number, ok := NormalizeDestination(dst)
	text = strings.TrimSpace(text)
	if !ok || text == "" {
		return ErrInvalidParameters
	}

	segments := SplitSegments(text, SegmentLength)
	for i, segment := range segments {
		if err := s.telephony.SendSMS(ctx, account.Credentials, number, segment); err != nil {
			metrics.SegmentsSent.WithLabelValues("failed").Inc()
			s.logger.Warn("Segment send failed, aborting message",
				util.Identifier("id", account.ID),
				util.Int("segment", i+1),
				util.Int("segments", len(segments)),
				util.ErrorField(err))
			return fmt.Errorf("%w: segment %d of %d: %v", ErrUpstream, i+1, len(segments), err)
		}
		metrics.SegmentsSent.WithLabelValues("sent").Inc()
	}

	s.logger.Info("Message sent",
		util.Identifier("id", account.ID),
		util.Int("segments", len(segments)))
	return nil
}
