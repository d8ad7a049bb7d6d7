package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/organizations"
	"github.com/aws/aws-sdk-go/service/organizations/organizationsiface"

	"github.com/orgfoundry/account-controller/framework/connection"
	"github.com/orgfoundry/account-controller/logger"
)

// Account is a member account as the org catalog describes it. The
// controller references accounts by ID and never copies catalog state
// anywhere durable.
type Account struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	JoinedTimestamp time.Time `json:"joinedTimestamp"`
}

var (
	ErrAccountNotFound      = errors.New("no account found for the given identifier")
	ErrAccountAlreadyExist  = errors.New("an account already exists for this email")
	ErrEmailIsNotValid      = errors.New("the provided email is not valid")
	ErrAccountLimitExceeded = errors.New("the organization account limit has been reached")
	ErrConcurrentChange     = errors.New("another account change is already in progress")
	ErrCreateAccountFailed  = errors.New("create account operation failed")
	ErrCreateAccountTimeout = errors.New("create account operation did not settle in time")
)

const (
	createStatusPollInterval = 5 * time.Second
	createStatusPollAttempts = 60
)

//go:generate mockery --name IDirectoryService --output ./mocks
type IDirectoryService interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	DescribeAccount(ctx context.Context, accountID string) (*Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*Account, error)
	GetTags(ctx context.Context, accountID string) (Tags, error)
	SetTags(ctx context.Context, accountID string, tags Tags) error
	Untag(ctx context.Context, accountID string, keys ...string) error
	CreateAccount(ctx context.Context, name, email string) (string, error)
	RemoveAccountFromOrganization(ctx context.Context, accountID string) error
}

type DirectoryService struct {
	loggerProvider logger.Provider
	client         organizationsiface.OrganizationsAPI
}

func NewDirectoryService(loggerProvider logger.Provider, conn *connection.Connection) *DirectoryService {
	return &DirectoryService{
		loggerProvider: loggerProvider,
		client:         conn.Organizations,
	}
}

// ListAccounts returns every member account, following pagination.
func (s *DirectoryService) ListAccounts(ctx context.Context) ([]Account, error) {
	var accounts []Account

	input := &organizations.ListAccountsInput{}

	err := withRetry(ctx, func() error {
		accounts = accounts[:0]

		return s.client.ListAccountsPagesWithContext(ctx, input,
			func(page *organizations.ListAccountsOutput, lastPage bool) bool {
				for _, a := range page.Accounts {
					accounts = append(accounts, newAccount(a))
				}

				return true
			})
	})
	if err != nil {
		return nil, fmt.Errorf("directory: list accounts: %w", err)
	}

	return accounts, nil
}

// DescribeAccount returns one account by ID.
func (s *DirectoryService) DescribeAccount(ctx context.Context, accountID string) (*Account, error) {
	var out *organizations.DescribeAccountOutput

	err := withRetry(ctx, func() error {
		var err error
		out, err = s.client.DescribeAccountWithContext(ctx, &organizations.DescribeAccountInput{
			AccountId: aws.String(accountID),
		})

		return err
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == organizations.ErrCodeAccountNotFoundException {
			return nil, ErrAccountNotFound
		}

		return nil, fmt.Errorf("directory: describe account %s: %w", accountID, err)
	}

	account := newAccount(out.Account)

	return &account, nil
}

// FindAccountByEmail scans the member listing for an exact email match.
func (s *DirectoryService) FindAccountByEmail(ctx context.Context, email string) (*Account, error) {
	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	for i := range accounts {
		if accounts[i].Email == email {
			return &accounts[i], nil
		}
	}

	return nil, ErrAccountNotFound
}

// GetTags reads the account's annotations fresh, following pagination.
func (s *DirectoryService) GetTags(ctx context.Context, accountID string) (Tags, error) {
	var list []*organizations.Tag

	input := &organizations.ListTagsForResourceInput{
		ResourceId: aws.String(accountID),
	}

	err := withRetry(ctx, func() error {
		list = list[:0]

		return s.client.ListTagsForResourcePagesWithContext(ctx, input,
			func(page *organizations.ListTagsForResourceOutput, lastPage bool) bool {
				list = append(list, page.Tags...)
				return true
			})
	})
	if err != nil {
		return nil, fmt.Errorf("directory: list tags for %s: %w", accountID, err)
	}

	return NewTags(list), nil
}

// SetTags writes the given annotations. Writing the same value twice is a
// no-op on the service side, which is what makes re-running a lifecycle
// transition safe.
func (s *DirectoryService) SetTags(ctx context.Context, accountID string, tags Tags) error {
	if len(tags) == 0 {
		return nil
	}

	list := make([]*organizations.Tag, 0, len(tags))
	for k, v := range tags {
		list = append(list, &organizations.Tag{
			Key:   aws.String(k),
			Value: aws.String(v),
		})
	}

	err := withRetry(ctx, func() error {
		_, err := s.client.TagResourceWithContext(ctx, &organizations.TagResourceInput{
			ResourceId: aws.String(accountID),
			Tags:       list,
		})

		return err
	})
	if err != nil {
		return fmt.Errorf("directory: tag %s: %w", accountID, err)
	}

	return nil
}

// Untag removes the given annotation keys.
func (s *DirectoryService) Untag(ctx context.Context, accountID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	err := withRetry(ctx, func() error {
		_, err := s.client.UntagResourceWithContext(ctx, &organizations.UntagResourceInput{
			ResourceId: aws.String(accountID),
			TagKeys:    aws.StringSlice(keys),
		})

		return err
	})
	if err != nil {
		return fmt.Errorf("directory: untag %s: %w", accountID, err)
	}

	return nil
}

// CreateAccount creates a member account through the native API and polls
// the request until it leaves IN_PROGRESS. Known failure reasons map to
// sentinel errors the portal can translate into user-facing messages.
func (s *DirectoryService) CreateAccount(ctx context.Context, name, email string) (string, error) {
	l := s.loggerProvider(ctx)

	var out *organizations.CreateAccountOutput

	err := withRetry(ctx, func() error {
		var err error
		out, err = s.client.CreateAccountWithContext(ctx, &organizations.CreateAccountInput{
			AccountName: aws.String(name),
			Email:       aws.String(email),
		})

		return err
	})
	if err != nil {
		return "", fmt.Errorf("directory: create account: %w", err)
	}

	requestID := aws.StringValue(out.CreateAccountStatus.Id)

	for attempt := 0; attempt < createStatusPollAttempts; attempt++ {
		var status *organizations.DescribeCreateAccountStatusOutput

		err := withRetry(ctx, func() error {
			var err error
			status, err = s.client.DescribeCreateAccountStatusWithContext(ctx, &organizations.DescribeCreateAccountStatusInput{
				CreateAccountRequestId: aws.String(requestID),
			})

			return err
		})
		if err != nil {
			return "", fmt.Errorf("directory: describe create status: %w", err)
		}

		state := aws.StringValue(status.CreateAccountStatus.State)

		switch state {
		case organizations.CreateAccountStateSucceeded:
			return aws.StringValue(status.CreateAccountStatus.AccountId), nil
		case organizations.CreateAccountStateFailed:
			reason := aws.StringValue(status.CreateAccountStatus.FailureReason)
			l.Errorf("create account request %s failed: %s", requestID, reason)

			return "", failureReasonError(reason)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(createStatusPollInterval):
		}
	}

	return "", ErrCreateAccountTimeout
}

// RemoveAccountFromOrganization detaches the member account. The service
// rejects removal before the minimum membership duration has passed;
// callers are expected to have checked the grace threshold first.
func (s *DirectoryService) RemoveAccountFromOrganization(ctx context.Context, accountID string) error {
	err := withRetry(ctx, func() error {
		_, err := s.client.RemoveAccountFromOrganizationWithContext(ctx, &organizations.RemoveAccountFromOrganizationInput{
			AccountId: aws.String(accountID),
		})

		return err
	})
	if err != nil {
		return fmt.Errorf("directory: remove account %s from organization: %w", accountID, err)
	}

	s.loggerProvider(ctx).Infof("removed account %s from the organization", accountID)

	return nil
}

func failureReasonError(reason string) error {
	switch reason {
	case organizations.CreateAccountFailureReasonAccountLimitExceeded:
		return ErrAccountLimitExceeded
	case organizations.CreateAccountFailureReasonEmailAlreadyExists:
		return ErrAccountAlreadyExist
	case organizations.CreateAccountFailureReasonInvalidEmail:
		return ErrEmailIsNotValid
	case organizations.CreateAccountFailureReasonConcurrentAccountModification:
		return ErrConcurrentChange
	case organizations.CreateAccountFailureReasonInternalFailure:
		return ErrCreateAccountFailed
	default:
		return ErrCreateAccountFailed
	}
}

func newAccount(a *organizations.Account) Account {
	return Account{
		ID:              aws.StringValue(a.Id),
		Email:           aws.StringValue(a.Email),
		Name:            aws.StringValue(a.Name),
		JoinedTimestamp: aws.TimeValue(a.JoinedTimestamp),
	}
}
