package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestEmailServiceDisabledWithoutSender(t *testing.T) {
	svc, err := NewEmailService(context.Background(), "us-east-1", "", "", zap.NewNop())
	require.NoError(t, err)
	assert.False(t, svc.IsEnabled())
	assert.NoError(t, svc.SendLoginLink(context.Background(), "a@example.com", "http://x", time.Hour))
	assert.NoError(t, svc.SendInvitation(context.Background(), "a@example.com", "Alice", "http://x", time.Hour))
}

func TestSendInvitationEscapesInviterName(t *testing.T) {
	ses := &fakeSES{}
	svc := newEmailService(ses, "photos@example.com", "Family Photos", zap.NewNop())

	err := svc.SendInvitation(context.Background(), "bob@example.com", "<b>Alice</b>", "http://photos.test/auth/callback?code=abc", 7*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, ses.inputs, 1)

	in := ses.inputs[0]
	assert.Equal(t, "Family Photos <photos@example.com>", aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"bob@example.com"}, in.Destination.ToAddresses)

	body := aws.ToString(in.Content.Simple.Body.Html.Data)
	assert.Contains(t, body, "&lt;b&gt;Alice&lt;/b&gt;")
	assert.NotContains(t, body, "<b>Alice</b>")
	assert.Contains(t, aws.ToString(in.Content.Simple.Body.Text.Data), "7 days")
}

func TestSendLoginLinkReportsFailure(t *testing.T) {
	ses := &fakeSES{err: errors.New("throttled")}
	svc := newEmailService(ses, "photos@example.com", "", zap.NewNop())

	err := svc.SendLoginLink(context.Background(), "bob@example.com", "http://x", time.Hour)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "throttled"))
}

func TestHumanDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{7 * 24 * time.Hour, "7 days"},
		{24 * time.Hour, "24 hours"},
		{time.Hour, "1 hour"},
		{15 * time.Minute, "15 minutes"},
		{30 * time.Second, "a few minutes"},
	}
	for _, tt := range tests {
		if got := humanDuration(tt.in); got != tt.want {
			t.Errorf("humanDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
