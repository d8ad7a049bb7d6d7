// Package servicecatalog provisions sub accounts through the account
// factory product when the controller runs in factory mode.
package servicecatalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	awsSdkServiceCatalog "github.com/aws/aws-sdk-go/service/servicecatalog"
	"github.com/aws/aws-sdk-go/service/servicecatalog/servicecatalogiface"
	"github.com/google/uuid"

	"github.com/orgfoundry/account-controller/directory"
	"github.com/orgfoundry/account-controller/logger"
)

var (
	ErrProvisioningFailed   = errors.New("account factory provisioning failed")
	ErrAccountNeverAppeared = errors.New("provisioned account never appeared in the organization")
	ErrMissingProductConfig = errors.New("factory mode requires a product and artifact id")
)

const (
	// The factory creates the account asynchronously; the org listing
	// is polled until the email shows up, bounded to avoid hanging a
	// worker when provisioning silently stalls.
	appearMaxAttempts = 60
	appearInterval    = 10 * time.Second
	appearCeiling     = 15 * time.Minute
)

// ProvisionRequest carries the factory product parameters for one
// account.
type ProvisionRequest struct {
	AccountName  string
	AccountEmail string
	OwnerEmail   string
}

//go:generate mockery --name IFactoryService --output ./mocks
type IFactoryService interface {
	ProvisionAccount(ctx context.Context, req ProvisionRequest) (string, error)
	TerminateProvisionedProduct(ctx context.Context, provisionedProductID string) error
	WaitForAccount(ctx context.Context, email string) (*directory.Account, error)
}

type FactoryService struct {
	loggerProvider logger.Provider
	client         servicecatalogiface.ServiceCatalogAPI
	dir            directory.IDirectoryService

	productID  string
	artifactID string

	interval time.Duration
}

func NewFactoryService(log logger.Provider, client servicecatalogiface.ServiceCatalogAPI, dir directory.IDirectoryService, productID, artifactID string) *FactoryService {
	return &FactoryService{
		loggerProvider: log,
		client:         client,
		dir:            dir,
		productID:      productID,
		artifactID:     artifactID,
		interval:       appearInterval,
	}
}

// ProvisionAccount launches the factory product and returns the
// provisioned product ID for the linkage tag.
func (s *FactoryService) ProvisionAccount(ctx context.Context, req ProvisionRequest) (string, error) {
	if s.productID == "" || s.artifactID == "" {
		return "", ErrMissingProductConfig
	}

	l := s.loggerProvider(ctx)

	params := map[string]string{
		"AccountName":               req.AccountName,
		"AccountEmail":              req.AccountEmail,
		"SSOUserEmail":              req.OwnerEmail,
		"SSOUserFirstName":          req.AccountName,
		"SSOUserLastName":           "Controller",
		"ManagedOrganizationalUnit": "Sandbox",
	}

	input := &awsSdkServiceCatalog.ProvisionProductInput{
		ProductId:              aws.String(s.productID),
		ProvisioningArtifactId: aws.String(s.artifactID),
		ProvisionedProductName: aws.String(fmt.Sprintf("account-%s", req.AccountName)),
		ProvisionToken:         aws.String(uuid.NewString()),
	}

	for name, value := range params {
		input.ProvisioningParameters = append(input.ProvisioningParameters, &awsSdkServiceCatalog.ProvisioningParameter{
			Key:   aws.String(name),
			Value: aws.String(value),
		})
	}

	out, err := s.client.ProvisionProductWithContext(ctx, input)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvisioningFailed, err)
	}

	id := aws.StringValue(out.RecordDetail.ProvisionedProductId)
	l.Infof("provisioning account %s through product %s, provisioned product %s", req.AccountEmail, s.productID, id)

	return id, nil
}

func (s *FactoryService) TerminateProvisionedProduct(ctx context.Context, provisionedProductID string) error {
	if provisionedProductID == "" {
		return nil
	}

	_, err := s.client.TerminateProvisionedProductWithContext(ctx, &awsSdkServiceCatalog.TerminateProvisionedProductInput{
		ProvisionedProductId: aws.String(provisionedProductID),
		TerminateToken:       aws.String(uuid.NewString()),
		IgnoreErrors:         aws.Bool(true),
	})
	if err != nil {
		var notFound *awsSdkServiceCatalog.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil
		}

		return err
	}

	return nil
}

// WaitForAccount polls the organization listing until an account with
// the target email appears.
func (s *FactoryService) WaitForAccount(ctx context.Context, email string) (*directory.Account, error) {
	l := s.loggerProvider(ctx)
	deadline := time.Now().Add(appearCeiling)

	for attempt := 1; attempt <= appearMaxAttempts; attempt++ {
		account, err := s.dir.FindAccountByEmail(ctx, email)
		if err == nil {
			return account, nil
		}

		if !errors.Is(err, directory.ErrAccountNotFound) {
			return nil, err
		}

		if time.Now().After(deadline) {
			break
		}

		l.Debugf("account %s not visible yet, attempt %d", email, attempt)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.interval):
		}
	}

	return nil, ErrAccountNeverAppeared
}
