package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalizeDestination(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1-555-123-4567", "5551234567", true},
		{"(555) 123-4567", "5551234567", true},
		{"5551234567", "5551234567", true},
		{"25551234567", "25551234567", false},
		{"555123456", "555123456", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeDestination(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestSplitSegments(t *testing.T) {
	segments := SplitSegments(strings.Repeat("a", 325), SegmentLength)
	require.Len(t, segments, 3)
	assert.Len(t, segments[0], 160)
	assert.Len(t, segments[1], 160)
	assert.Len(t, segments[2], 5)

	assert.Equal(t, []string{"hi"}, SplitSegments("hi", SegmentLength))
	assert.Nil(t, SplitSegments("", SegmentLength))

	multibyte := SplitSegments(strings.Repeat("é", 161), SegmentLength)
	require.Len(t, multibyte, 2)
	assert.Equal(t, "é", multibyte[1])
}

func TestSender_SendsSegmentsInOrder(t *testing.T) {
	text := strings.Repeat("a", 160) + strings.Repeat("b", 160) + "ccccc"
	account := testAccount()

	tel := new(mockTelephony)
	var sent []string
	tel.On("SendSMS", mock.Anything, account.Credentials, "5551234567", mock.Anything).
		Run(func(args mock.Arguments) { sent = append(sent, args.String(3)) }).
		Return(nil)

	err := NewSender(tel, zap.NewNop()).Send(context.Background(), account, "1-555-123-4567", text)
	require.NoError(t, err)
	assert.Equal(t, []string{strings.Repeat("a", 160), strings.Repeat("b", 160), "ccccc"}, sent)
}

func TestSender_AbortsOnFirstFailure(t *testing.T) {
	text := strings.Repeat("a", 160) + strings.Repeat("b", 160) + "ccccc"
	account := testAccount()

	tel := new(mockTelephony)
	tel.On("SendSMS", mock.Anything, mock.Anything, mock.Anything, strings.Repeat("a", 160)).Return(nil).Once()
	tel.On("SendSMS", mock.Anything, mock.Anything, mock.Anything, strings.Repeat("b", 160)).Return(errors.New("rejected")).Once()

	err := NewSender(tel, zap.NewNop()).Send(context.Background(), account, "5551234567", text)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	tel.AssertNumberOfCalls(t, "SendSMS", 2)
	tel.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything, "ccccc")
}

func TestSender_RejectsWithoutNetwork(t *testing.T) {
	tel := new(mockTelephony)
	s := NewSender(tel, zap.NewNop())
	ctx := context.Background()

	assert.ErrorIs(t, s.Send(ctx, testAccount(), "555123456", "hello"), ErrInvalidParameters)
	assert.ErrorIs(t, s.Send(ctx, testAccount(), "5551234567", "   "), ErrInvalidParameters)

	invalid := testAccount()
	invalid.Credentials.Password = "short"
	assert.ErrorIs(t, s.Send(ctx, invalid, "5551234567", "hello"), ErrInvalidParameters)

	tel.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSender_TrimsBeforeSplitting(t *testing.T) {
	account := testAccount()

	tel := new(mockTelephony)
	var sent []string
	tel.On("SendSMS", mock.Anything, account.Credentials, "5551234567", mock.Anything).
		Run(func(args mock.Arguments) { sent = append(sent, args.String(3)) }).
		Return(nil)
	sender := NewSender(tel, zap.NewNop())

	full := strings.Repeat("a", 160)
	require.NoError(t, sender.Send(context.Background(), account, "5551234567", full+"\n"))
	assert.Equal(t, []string{full}, sent)

	sent = nil
	require.NoError(t, sender.Send(context.Background(), account, "5551234567", "  hi  "))
	assert.Equal(t, []string{"hi"}, sent)
}
