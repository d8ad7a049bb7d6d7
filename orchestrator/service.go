package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orgfoundry/account-controller/common"
	"github.com/orgfoundry/account-controller/config"
	"github.com/orgfoundry/account-controller/directory"
	"github.com/orgfoundry/account-controller/logger"
	"github.com/orgfoundry/account-controller/mailer"
	"github.com/orgfoundry/account-controller/scheduler"
	"github.com/orgfoundry/account-controller/servicecatalog"
)

var (
	// ErrNotOwner rejects deletion requests whose caller GUID does not
	// match the account's owner tag.
	ErrNotOwner = errors.New("caller does not own this account")

	ErrAccountUntracked = errors.New("account carries no lifecycle tags")
)

//go:generate mockery --name IAccountService --output ./mocks
type IAccountService interface {
	CreateAccount(ctx context.Context, req *CreateAccountRequest, ownerGUID string) (*CreateAccountResult, error)
	ListVisibleAccounts(ctx context.Context, callerGUID string) ([]AccountView, error)
	GrantOwnerAccess(ctx context.Context, accountID string) error
	MarkForDeletion(ctx context.Context, accountID, callerGUID string) error
	ForceDeletion(ctx context.Context, accountID string) error
	StartDeletion(ctx context.Context, accountID string) error
	RequestPasswordReset(ctx context.Context, email string) error
	RemoveAccountFromOrg(ctx context.Context, account *directory.Account) (bool, error)
	HandleScheduledRemoval(ctx context.Context, accountID, ruleName string) error
	HandleInboundEmail(ctx context.Context, loc mailer.StoredLocation) error
}

type AccountService struct {
	loggerProvider logger.Provider
	dir            directory.IDirectoryService
	sched          scheduler.IScheduler
	console        ConsoleAutomation
	mail           mailer.IMailService
	factory        servicecatalog.IFactoryService
	cfg            *config.Config

	now func() time.Time
}

func NewAccountService(
	log logger.Provider,
	dir directory.IDirectoryService,
	sched scheduler.IScheduler,
	console ConsoleAutomation,
	mail mailer.IMailService,
	factory servicecatalog.IFactoryService,
	cfg *config.Config,
) *AccountService {
	return &AccountService{
		loggerProvider: log,
		dir:            dir,
		sched:          sched,
		console:        console,
		mail:           mail,
		factory:        factory,
		cfg:            cfg,
		now:            time.Now,
	}
}

// AccountView is the portal's listing row.
type AccountView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	State  string `json:"state"`
	Shared bool   `json:"shared"`
}

// ListVisibleAccounts returns accounts the caller owns plus accounts
// shared with the whole org.
func (s *AccountService) ListVisibleAccounts(ctx context.Context, callerGUID string) ([]AccountView, error) {
	accounts, err := s.dir.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]AccountView, 0)

	for _, account := range accounts {
		tags, err := s.dir.GetTags(ctx, account.ID)
		if err != nil {
			return nil, err
		}

		owner := tags.OwnerGUID()
		shared := tags.SharedWithOrg()

		if owner != callerGUID && !shared {
			continue
		}

		views = append(views, AccountView{
			ID:     account.ID,
			Name:   account.Name,
			Email:  account.Email,
			State:  StateFromTags(tags),
			Shared: shared,
		})
	}

	return views, nil
}

// GrantOwnerAccess runs the SSO grant for the tagged owner and flips
// SSOCreationComplete. Rerunning is safe; the grant selects by exact
// username.
func (s *AccountService) GrantOwnerAccess(ctx context.Context, accountID string) error {
	l := s.loggerProvider(ctx)

	tags, err := s.dir.GetTags(ctx, accountID)
	if err != nil {
		return err
	}

	owner := tags.OwnerGUID()
	if owner == "" {
		return ErrAccountUntracked
	}

	if tags.SSOCreationComplete() {
		l.Infof("sso access already granted on %s", accountID)
		return nil
	}

	if err := ValidateTransition(StateFromTags(tags), StateActive); err != nil {
		return err
	}

	if err := s.console.GrantAccess(ctx, owner, accountID); err != nil {
		return err
	}

	return s.dir.SetTags(ctx, accountID, directory.Tags{
		directory.TagSSOCreationComplete: "true",
	})
}

// MarkForDeletion authorizes the caller against the owner tag and sets
// the Delete tag. The tag-change event then starts the deletion flow.
func (s *AccountService) MarkForDeletion(ctx context.Context, accountID, callerGUID string) error {
	tags, err := s.dir.GetTags(ctx, accountID)
	if err != nil {
		return err
	}

	if tags.OwnerGUID() != callerGUID {
		return ErrNotOwner
	}

	if err := ValidateTransition(StateFromTags(tags), StateMarkedForDeletion); err != nil {
		return err
	}

	return s.dir.SetTags(ctx, accountID, directory.Tags{
		directory.TagDelete: "true",
	})
}

// ForceDeletion marks an account for deletion without owner
// authorization. Budget enforcement uses it when an account exceeds
// its spend cap.
func (s *AccountService) ForceDeletion(ctx context.Context, accountID string) error {
	tags, err := s.dir.GetTags(ctx, accountID)
	if err != nil {
		return err
	}

	if tags.MarkedForDeletion() {
		return nil
	}

	if err := ValidateTransition(StateFromTags(tags), StateMarkedForDeletion); err != nil {
		return err
	}

	return s.dir.SetTags(ctx, accountID, directory.Tags{
		directory.TagDelete: "true",
	})
}

// StartDeletion kicks off teardown for an account already marked for
// deletion: terminate any linked factory product, then request the
// password reset whose email continues the flow.
func (s *AccountService) StartDeletion(ctx context.Context, accountID string) error {
	l := s.loggerProvider(ctx)

	account, err := s.dir.DescribeAccount(ctx, accountID)
	if err != nil {
		return err
	}

	tags, err := s.dir.GetTags(ctx, accountID)
	if err != nil {
		return err
	}

	if !tags.MarkedForDeletion() {
		l.Infof("account %s is not marked for deletion, nothing to do", accountID)
		return nil
	}

	if err := ValidateTransition(StateMarkedForDeletion, StatePasswordResetInFlight); err != nil {
		return err
	}

	if ppID := tags.ProvisionedProductID(); ppID != "" {
		if err := s.factory.TerminateProvisionedProduct(ctx, ppID); err != nil {
			return fmt.Errorf("terminating provisioned product %s: %w", ppID, err)
		}
	}

	l.Infof("requesting password reset for %s (%s)", accountID, account.Email)

	return s.console.RequestPasswordReset(ctx, account.Email)
}

// RequestPasswordReset drives the console's forgot-password form for the
// given root email. Direct invocations use it to restart a stalled
// closure without re-tagging.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	l := s.loggerProvider(ctx)

	l.Infof("requesting password reset for %s", email)

	return s.console.RequestPasswordReset(ctx, email)
}

// RemoveAccountFromOrg removes the account when the grace period has
// elapsed, or schedules a one-shot rule at threshold plus buffer.
// Returns whether removal happened now. The rule name is deterministic
// per account, so rescheduling is idempotent.
func (s *AccountService) RemoveAccountFromOrg(ctx context.Context, account *directory.Account) (bool, error) {
	l := s.loggerProvider(ctx)

	threshold := account.JoinedTimestamp.Add(common.GracePeriod)

	if s.now().After(threshold) {
		if err := s.dir.RemoveAccountFromOrganization(ctx, account.ID); err != nil {
			return false, err
		}

		l.Infof("removed account %s from organization", account.ID)

		return true, nil
	}

	fireAt := threshold.Add(common.GraceBuffer)
	ruleName := scheduler.RuleName(account.ID)

	payload := map[string]interface{}{
		"action":   "removeAccountFromOrg",
		"account":  account,
		"ruleName": ruleName,
	}

	if err := s.sched.ScheduleInvocation(ctx, ruleName, fireAt, payload); err != nil {
		return false, err
	}

	if err := s.dir.SetTags(ctx, account.ID, directory.Tags{
		directory.TagScheduledRemovalTime: fireAt.UTC().Format(time.RFC3339),
	}); err != nil {
		return false, err
	}

	l.Infof("scheduled removal of account %s at %s", account.ID, fireAt.UTC().Format(time.RFC3339))

	return false, nil
}

// HandleScheduledRemoval is the deferred half of RemoveAccountFromOrg:
// it fires when the grace rule triggers, removes the account, and
// cleans up the rule.
func (s *AccountService) HandleScheduledRemoval(ctx context.Context, accountID, ruleName string) error {
	account, err := s.dir.DescribeAccount(ctx, accountID)
	if err != nil {
		return err
	}

	removed, err := s.RemoveAccountFromOrg(ctx, account)
	if err != nil {
		return err
	}

	if removed && ruleName != "" {
		return s.sched.CancelInvocation(ctx, ruleName)
	}

	return nil
}
