package directory

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/organizations"
	"github.com/aws/aws-sdk-go/service/organizations/organizationsiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgfoundry/account-controller/logger"
)

type stubOrganizations struct {
	organizationsiface.OrganizationsAPI

	accounts      []*organizations.Account
	tags          map[string][]*organizations.Tag
	tagged        map[string]Tags
	removed       []string
	createStates  []string
	createdID     string
	failureReason string
	statusCalls   int
}

func testLoggerProvider(ctx context.Context) logger.ILogger {
	return logger.FromContext(ctx)
}

func (s *stubOrganizations) ListAccountsPagesWithContext(ctx aws.Context, input *organizations.ListAccountsInput, fn func(*organizations.ListAccountsOutput, bool) bool, opts ...request.Option) error {
	// two pages to exercise pagination
	half := len(s.accounts) / 2

	if !fn(&organizations.ListAccountsOutput{Accounts: s.accounts[:half]}, false) {
		return nil
	}

	fn(&organizations.ListAccountsOutput{Accounts: s.accounts[half:]}, true)

	return nil
}

func (s *stubOrganizations) DescribeAccountWithContext(ctx aws.Context, input *organizations.DescribeAccountInput, opts ...request.Option) (*organizations.DescribeAccountOutput, error) {
	for _, a := range s.accounts {
		if aws.StringValue(a.Id) == aws.StringValue(input.AccountId) {
			return &organizations.DescribeAccountOutput{Account: a}, nil
		}
	}

	return nil, awsAccountNotFound()
}

func (s *stubOrganizations) ListTagsForResourcePagesWithContext(ctx aws.Context, input *organizations.ListTagsForResourceInput, fn func(*organizations.ListTagsForResourceOutput, bool) bool, opts ...request.Option) error {
	fn(&organizations.ListTagsForResourceOutput{Tags: s.tags[aws.StringValue(input.ResourceId)]}, true)
	return nil
}

func (s *stubOrganizations) TagResourceWithContext(ctx aws.Context, input *organizations.TagResourceInput, opts ...request.Option) (*organizations.TagResourceOutput, error) {
	if s.tagged == nil {
		s.tagged = make(map[string]Tags)
	}

	id := aws.StringValue(input.ResourceId)
	if s.tagged[id] == nil {
		s.tagged[id] = make(Tags)
	}

	for _, tag := range input.Tags {
		s.tagged[id][aws.StringValue(tag.Key)] = aws.StringValue(tag.Value)
	}

	return &organizations.TagResourceOutput{}, nil
}

func (s *stubOrganizations) CreateAccountWithContext(ctx aws.Context, input *organizations.CreateAccountInput, opts ...request.Option) (*organizations.CreateAccountOutput, error) {
	return &organizations.CreateAccountOutput{
		CreateAccountStatus: &organizations.CreateAccountStatus{
			Id:    aws.String("car-test"),
			State: aws.String(organizations.CreateAccountStateInProgress),
		},
	}, nil
}

func (s *stubOrganizations) DescribeCreateAccountStatusWithContext(ctx aws.Context, input *organizations.DescribeCreateAccountStatusInput, opts ...request.Option) (*organizations.DescribeCreateAccountStatusOutput, error) {
	state := s.createStates[s.statusCalls]
	if s.statusCalls < len(s.createStates)-1 {
		s.statusCalls++
	}

	status := &organizations.CreateAccountStatus{
		Id:    aws.String("car-test"),
		State: aws.String(state),
	}

	if state == organizations.CreateAccountStateSucceeded {
		status.AccountId = aws.String(s.createdID)
	}

	if state == organizations.CreateAccountStateFailed {
		status.FailureReason = aws.String(s.failureReason)
	}

	return &organizations.DescribeCreateAccountStatusOutput{CreateAccountStatus: status}, nil
}

func (s *stubOrganizations) RemoveAccountFromOrganizationWithContext(ctx aws.Context, input *organizations.RemoveAccountFromOrganizationInput, opts ...request.Option) (*organizations.RemoveAccountFromOrganizationOutput, error) {
	s.removed = append(s.removed, aws.StringValue(input.AccountId))
	return &organizations.RemoveAccountFromOrganizationOutput{}, nil
}

func awsAccountNotFound() error {
	return &notFoundError{}
}

type notFoundError struct{}

func (e *notFoundError) Error() string   { return organizations.ErrCodeAccountNotFoundException }
func (e *notFoundError) Code() string    { return organizations.ErrCodeAccountNotFoundException }
func (e *notFoundError) Message() string { return "account not found" }
func (e *notFoundError) OrigErr() error  { return nil }

func newTestService(stub *stubOrganizations) *DirectoryService {
	return &DirectoryService{
		loggerProvider: testLoggerProvider,
		client:         stub,
	}
}

func TestListAccountsFollowsPagination(t *testing.T) {
	stub := &stubOrganizations{
		accounts: []*organizations.Account{
			{Id: aws.String("111111111111"), Email: aws.String("a@example.com"), Name: aws.String("a")},
			{Id: aws.String("222222222222"), Email: aws.String("b@example.com"), Name: aws.String("b")},
			{Id: aws.String("333333333333"), Email: aws.String("c@example.com"), Name: aws.String("c")},
		},
	}

	accounts, err := newTestService(stub).ListAccounts(context.Background())

	require.NoError(t, err)
	assert.Len(t, accounts, 3)
	assert.Equal(t, "222222222222", accounts[1].ID)
}

func TestFindAccountByEmail(t *testing.T) {
	joined := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	stub := &stubOrganizations{
		accounts: []*organizations.Account{
			{Id: aws.String("111111111111"), Email: aws.String("a@example.com"), Name: aws.String("a")},
			{Id: aws.String("222222222222"), Email: aws.String("b@example.com"), Name: aws.String("b"), JoinedTimestamp: aws.Time(joined)},
		},
	}

	svc := newTestService(stub)

	account, err := svc.FindAccountByEmail(context.Background(), "b@example.com")
	require.NoError(t, err)
	assert.Equal(t, "222222222222", account.ID)
	assert.True(t, account.JoinedTimestamp.Equal(joined))

	_, err = svc.FindAccountByEmail(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestDescribeAccountNotFound(t *testing.T) {
	svc := newTestService(&stubOrganizations{})

	_, err := svc.DescribeAccount(context.Background(), "999999999999")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestSetTagsWritesAllPairs(t *testing.T) {
	stub := &stubOrganizations{}
	svc := newTestService(stub)

	err := svc.SetTags(context.Background(), "111111111111", Tags{
		TagAccountOwnerGUID:    "guid-1",
		TagSSOCreationComplete: "false",
	})

	require.NoError(t, err)
	assert.Equal(t, "guid-1", stub.tagged["111111111111"][TagAccountOwnerGUID])
	assert.Equal(t, "false", stub.tagged["111111111111"][TagSSOCreationComplete])
}

func TestCreateAccountMapsFailureReasons(t *testing.T) {
	tests := []struct {
		reason string
		want   error
	}{
		{organizations.CreateAccountFailureReasonAccountLimitExceeded, ErrAccountLimitExceeded},
		{organizations.CreateAccountFailureReasonEmailAlreadyExists, ErrAccountAlreadyExist},
		{organizations.CreateAccountFailureReasonInvalidEmail, ErrEmailIsNotValid},
		{organizations.CreateAccountFailureReasonConcurrentAccountModification, ErrConcurrentChange},
		{organizations.CreateAccountFailureReasonInternalFailure, ErrCreateAccountFailed},
		{"SOMETHING_NEW", ErrCreateAccountFailed},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			stub := &stubOrganizations{
				createStates:  []string{organizations.CreateAccountStateFailed},
				failureReason: tt.reason,
			}

			_, err := newTestService(stub).CreateAccount(context.Background(), "test", "test@example.com")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateAccountPollsUntilSucceeded(t *testing.T) {
	stub := &stubOrganizations{
		createStates: []string{
			organizations.CreateAccountStateSucceeded,
		},
		createdID: "444444444444",
	}

	id, err := newTestService(stub).CreateAccount(context.Background(), "test", "test@example.com")

	require.NoError(t, err)
	assert.Equal(t, "444444444444", id)
}

func TestRemoveAccountFromOrganization(t *testing.T) {
	stub := &stubOrganizations{}

	err := newTestService(stub).RemoveAccountFromOrganization(context.Background(), "111111111111")

	require.NoError(t, err)
	assert.Equal(t, []string{"111111111111"}, stub.removed)
}
