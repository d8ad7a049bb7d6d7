package browser

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/orgfoundry/account-controller/framework/connection"
	"github.com/orgfoundry/account-controller/logger"
)

// Diagnostics captures page screenshots to a bucket for operator
// inspection. Capture failures are logged and swallowed; diagnostics must
// never change a procedure's outcome.
type Diagnostics struct {
	loggerProvider logger.Provider
	client         s3iface.S3API
	bucket         string
	enabled        bool
}

func NewDiagnostics(loggerProvider logger.Provider, conn *connection.Connection, bucket string, enabled bool) *Diagnostics {
	return &Diagnostics{
		loggerProvider: loggerProvider,
		client:         conn.S3,
		bucket:         bucket,
		enabled:        enabled && bucket != "",
	}
}

// NewDisabledDiagnostics returns a Diagnostics that never captures.
func NewDisabledDiagnostics(loggerProvider logger.Provider) *Diagnostics {
	return &Diagnostics{loggerProvider: loggerProvider}
}

// Capture stores a screenshot of the driver's current page.
func (d *Diagnostics) Capture(ctx context.Context, driver Driver) {
	if !d.enabled {
		return
	}

	l := d.loggerProvider(ctx)

	png, err := driver.Screenshot(ctx)
	if err != nil {
		l.Warningf("diagnostics: screenshot failed: %s", err)
		return
	}

	key := fmt.Sprintf("%d.png", time.Now().UnixNano())

	_, err = d.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(png),
	})
	if err != nil {
		l.Warningf("diagnostics: upload failed: %s", err)
		return
	}

	l.Debugf("diagnostics: captured s3://%s/%s", d.bucket, key)
}
