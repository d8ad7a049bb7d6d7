package connection

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/eventbridge"
	"github.com/aws/aws-sdk-go/service/eventbridge/eventbridgeiface"
	"github.com/aws/aws-sdk-go/service/organizations"
	"github.com/aws/aws-sdk-go/service/organizations/organizationsiface"
	"github.com/aws/aws-sdk-go/service/rekognition"
	"github.com/aws/aws-sdk-go/service/rekognition/rekognitioniface"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/aws/aws-sdk-go/service/servicecatalog"
	"github.com/aws/aws-sdk-go/service/servicecatalog/servicecatalogiface"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/ses/sesiface"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"

	"github.com/orgfoundry/account-controller/common"
	"github.com/orgfoundry/account-controller/logger"
)

// Connection holds the shared AWS control-plane clients. It is constructed
// once per process and injected into every service; no package keeps a
// client of its own.
type Connection struct {
	Session        *session.Session
	Organizations  organizationsiface.OrganizationsAPI
	EventBridge    eventbridgeiface.EventBridgeAPI
	SES            sesiface.SESAPI
	S3             s3iface.S3API
	SecretsManager secretsmanageriface.SecretsManagerAPI
	SSM            ssmiface.SSMAPI
	Rekognition    rekognitioniface.RekognitionAPI
	ServiceCatalog servicecatalogiface.ServiceCatalogAPI
}

// NewConnection initializes the AWS clients necessary for api support.
func NewConnection(ctx context.Context, log *logger.Logging) (*Connection, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(common.Region),
	})
	if err != nil {
		return nil, err
	}

	return &Connection{
		Session:        sess,
		Organizations:  organizations.New(sess),
		EventBridge:    eventbridge.New(sess),
		SES:            ses.New(sess),
		S3:             s3.New(sess),
		SecretsManager: secretsmanager.New(sess),
		SSM:            ssm.New(sess),
		Rekognition:    rekognition.New(sess),
		ServiceCatalog: servicecatalog.New(sess),
	}, nil
}
