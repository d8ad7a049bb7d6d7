// Package mailer fetches inbound messages from their S3 landing bucket
// and forwards them over SES, falling back to a notice that names the
// stored copy when forwarding fails.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/ses/sesiface"
	"github.com/hashicorp/go-multierror"

	"github.com/orgfoundry/account-controller/logger"
)

const fallbackNotice = "***CONTENT NOT PROCESSABLE***"

// StoredLocation names the S3 copy of an inbound message.
type StoredLocation struct {
	Bucket string
	Key    string
}

func (l StoredLocation) String() string {
	return fmt.Sprintf("s3://%s/%s", l.Bucket, l.Key)
}

// SubjectVars feeds the forwarding subject template.
type SubjectVars struct {
	Subject      string
	From         string
	To           string
	AccountID    string
	AccountName  string
	AccountEmail string
}

//go:generate mockery --name IMailService --output ./mocks
type IMailService interface {
	FetchStoredMessage(ctx context.Context, loc StoredLocation) (*Message, error)
	RenderSubject(vars SubjectVars) string
	Forward(ctx context.Context, msg *Message, dest, subject string) error
	ForwardOrNotify(ctx context.Context, msg *Message, loc StoredLocation, dest, subject string) error
	SendFallbackNotice(ctx context.Context, loc StoredLocation) error
}

type MailService struct {
	loggerProvider logger.Provider
	sesClient      sesiface.SESAPI
	s3Client       s3iface.S3API

	masterEmail     string
	subjectTemplate string
}

func NewMailService(log logger.Provider, sesClient sesiface.SESAPI, s3Client s3iface.S3API, masterEmail, subjectTemplate string) *MailService {
	return &MailService{
		loggerProvider:  log,
		sesClient:       sesClient,
		s3Client:        s3Client,
		masterEmail:     masterEmail,
		subjectTemplate: subjectTemplate,
	}
}

func (s *MailService) FetchStoredMessage(ctx context.Context, loc StoredLocation) (*Message, error) {
	out, err := s.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", loc, err)
	}

	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", loc, err)
	}

	return ParseMessage(raw)
}

// RenderSubject substitutes the template placeholders. An empty
// template falls back to the original subject.
func (s *MailService) RenderSubject(vars SubjectVars) string {
	if s.subjectTemplate == "" {
		return vars.Subject
	}

	r := strings.NewReplacer(
		"{subject}", vars.Subject,
		"{from}", vars.From,
		"{to}", vars.To,
		"{accountid}", vars.AccountID,
		"{accountname}", vars.AccountName,
		"{accountemail}", vars.AccountEmail,
	)

	return r.Replace(s.subjectTemplate)
}

// Forward re-sends the message body to dest with rewritten headers,
// keeping the original MIME structure so attachments survive.
func (s *MailService) Forward(ctx context.Context, msg *Message, dest, subject string) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", s.masterEmail)
	fmt.Fprintf(&buf, "To: %s\r\n", dest)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)

	if msg.From != "" {
		fmt.Fprintf(&buf, "Reply-To: %s\r\n", msg.From)
	}

	if msg.ContentType != "" {
		fmt.Fprintf(&buf, "MIME-Version: 1.0\r\nContent-Type: %s\r\n", msg.ContentType)
	}

	buf.WriteString("\r\n")
	buf.Write(msg.RawBody)

	_, err := s.sesClient.SendRawEmailWithContext(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(s.masterEmail),
		Destinations: []*string{aws.String(dest)},
		RawMessage:   &ses.RawMessage{Data: buf.Bytes()},
	})

	return err
}

// ForwardOrNotify forwards the message, and on failure delivers the
// fallback notice to the master mailbox so the stored copy is not lost.
// Only when both sends fail does an error surface, carrying both causes.
func (s *MailService) ForwardOrNotify(ctx context.Context, msg *Message, loc StoredLocation, dest, subject string) error {
	l := s.loggerProvider(ctx)

	err := s.Forward(ctx, msg, dest, subject)
	if err == nil {
		return nil
	}

	l.Warningf("forwarding %s to %s failed: %v", loc, dest, err)

	if ferr := s.SendFallbackNotice(ctx, loc); ferr != nil {
		return multierror.Append(err, ferr)
	}

	return nil
}

func (s *MailService) SendFallbackNotice(ctx context.Context, loc StoredLocation) error {
	body := fmt.Sprintf("%s\r\n\r\nDownload the email from %s", fallbackNotice, loc)

	_, err := s.sesClient.SendEmailWithContext(ctx, &ses.SendEmailInput{
		Source: aws.String(s.masterEmail),
		Destination: &ses.Destination{
			ToAddresses: []*string{aws.String(s.masterEmail)},
		},
		Message: &ses.Message{
			Subject: &ses.Content{Data: aws.String("Inbound email could not be forwarded")},
			Body: &ses.Body{
				Text: &ses.Content{Data: aws.String(body)},
			},
		},
	})

	return err
}
