package mailer

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	awsrequest "github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/ses/sesiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgfoundry/account-controller/logger"
)

type stubSES struct {
	sesiface.SESAPI

	rawErr    error
	simpleErr error

	rawSends    []*ses.SendRawEmailInput
	simpleSends []*ses.SendEmailInput
}

func (s *stubSES) SendRawEmailWithContext(ctx aws.Context, input *ses.SendRawEmailInput, opts ...awsrequest.Option) (*ses.SendRawEmailOutput, error) {
	if s.rawErr != nil {
		return nil, s.rawErr
	}

	s.rawSends = append(s.rawSends, input)

	return &ses.SendRawEmailOutput{}, nil
}

func (s *stubSES) SendEmailWithContext(ctx aws.Context, input *ses.SendEmailInput, opts ...awsrequest.Option) (*ses.SendEmailOutput, error) {
	if s.simpleErr != nil {
		return nil, s.simpleErr
	}

	s.simpleSends = append(s.simpleSends, input)

	return &ses.SendEmailOutput{}, nil
}

type stubS3 struct {
	s3iface.S3API

	objects map[string]string
}

func (s *stubS3) GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...awsrequest.Option) (*s3.GetObjectOutput, error) {
	body, ok := s.objects[aws.StringValue(input.Bucket)+"/"+aws.StringValue(input.Key)]
	if !ok {
		return nil, errors.New("no such key")
	}

	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func testLoggerProvider(t *testing.T) logger.Provider {
	t.Helper()

	logging, err := logger.NewLogging(context.Background())
	require.NoError(t, err)

	return func(ctx context.Context) logger.ILogger {
		return logging.Logger(ctx)
	}
}

func TestMailService_RenderSubject(t *testing.T) {
	s := NewMailService(testLoggerProvider(t), &stubSES{}, &stubS3{}, "master@example.com",
		"[{accountname} {accountid}] {subject} (from {from} to {to}, {accountemail})")

	got := s.RenderSubject(SubjectVars{
		Subject:      "Bill ready",
		From:         "billing@aws",
		To:           "sandbox-42@example.com",
		AccountID:    "111122223333",
		AccountName:  "sandbox-42",
		AccountEmail: "sandbox-42@example.com",
	})

	assert.Equal(t, "[sandbox-42 111122223333] Bill ready (from billing@aws to sandbox-42@example.com, sandbox-42@example.com)", got)
}

func TestMailService_ForwardOrNotify(t *testing.T) {
	ctx := context.Background()
	loc := StoredLocation{Bucket: "inbound", Key: "msg/1"}
	msg := &Message{From: "a@b", ContentType: "text/plain", RawBody: []byte("hello")}

	t.Run("forward succeeds", func(t *testing.T) {
		sesStub := &stubSES{}
		s := NewMailService(testLoggerProvider(t), sesStub, &stubS3{}, "master@example.com", "")

		err := s.ForwardOrNotify(ctx, msg, loc, "owner@example.com", "fwd")
		require.NoError(t, err)
		require.Len(t, sesStub.rawSends, 1)
		assert.Empty(t, sesStub.simpleSends)

		raw := string(sesStub.rawSends[0].RawMessage.Data)
		assert.Contains(t, raw, "To: owner@example.com")
		assert.Contains(t, raw, "Subject: fwd")
		assert.Contains(t, raw, "Reply-To: a@b")
		assert.True(t, strings.HasSuffix(raw, "\r\nhello"))
	})

	t.Run("forward fails, fallback notice sent", func(t *testing.T) {
		sesStub := &stubSES{rawErr: errors.New("rejected")}
		s := NewMailService(testLoggerProvider(t), sesStub, &stubS3{}, "master@example.com", "")

		err := s.ForwardOrNotify(ctx, msg, loc, "owner@example.com", "fwd")
		require.NoError(t, err)
		require.Len(t, sesStub.simpleSends, 1)

		notice := sesStub.simpleSends[0]
		assert.Equal(t, "master@example.com", aws.StringValue(notice.Destination.ToAddresses[0]))
		body := aws.StringValue(notice.Message.Body.Text.Data)
		assert.Contains(t, body, "***CONTENT NOT PROCESSABLE***")
		assert.Contains(t, body, "Download the email from s3://inbound/msg/1")
	})

	t.Run("both sends fail", func(t *testing.T) {
		sesStub := &stubSES{rawErr: errors.New("rejected"), simpleErr: errors.New("also rejected")}
		s := NewMailService(testLoggerProvider(t), sesStub, &stubS3{}, "master@example.com", "")

		err := s.ForwardOrNotify(ctx, msg, loc, "owner@example.com", "fwd")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rejected")
		assert.Contains(t, err.Error(), "also rejected")
	})
}

func TestMailService_FetchStoredMessage(t *testing.T) {
	s3Stub := &stubS3{objects: map[string]string{
		"inbound/msg/1": plainMessage,
	}}

	s := NewMailService(testLoggerProvider(t), &stubSES{}, s3Stub, "master@example.com", "")

	msg, err := s.FetchStoredMessage(context.Background(), StoredLocation{Bucket: "inbound", Key: "msg/1"})
	require.NoError(t, err)
	assert.Equal(t, "sandbox-42@example.com", msg.Recipient())

	_, err = s.FetchStoredMessage(context.Background(), StoredLocation{Bucket: "inbound", Key: "missing"})
	assert.Error(t, err)
}
