package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/eventbridge"
	"github.com/aws/aws-sdk-go/service/eventbridge/eventbridgeiface"

	"github.com/orgfoundry/account-controller/common"
	"github.com/orgfoundry/account-controller/framework/connection"
	"github.com/orgfoundry/account-controller/logger"
)

// RuleNamePrefix is the deterministic name prefix for deferred removal
// rules; combined with the account ID it guarantees at most one pending
// rule per account.
const RuleNamePrefix = "ScheduledAccountDeletion-"

//go:generate mockery --name IScheduler --output ./mocks
type IScheduler interface {
	ScheduleInvocation(ctx context.Context, ruleName string, fireAt time.Time, payload interface{}) error
	CancelInvocation(ctx context.Context, ruleName string) error
}

// Scheduler registers one-shot future triggers through EventBridge rules.
type Scheduler struct {
	loggerProvider logger.Provider
	client         eventbridgeiface.EventBridgeAPI
	targetArn      string
}

func NewScheduler(loggerProvider logger.Provider, conn *connection.Connection, targetArn string) *Scheduler {
	return &Scheduler{
		loggerProvider: loggerProvider,
		client:         conn.EventBridge,
		targetArn:      targetArn,
	}
}

// RuleName returns the deterministic rule name for an account's deferred
// removal.
func RuleName(accountID string) string {
	return RuleNamePrefix + accountID
}

// ScheduleInvocation registers a rule that fires once at fireAt with the
// given payload. Registering the same rule name again overwrites the
// previous registration, so scheduling is idempotent.
func (s *Scheduler) ScheduleInvocation(ctx context.Context, ruleName string, fireAt time.Time, payload interface{}) error {
	l := s.loggerProvider(ctx)

	input, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("scheduler: marshal payload: %w", err)
	}

	_, err = s.client.PutRuleWithContext(ctx, &eventbridge.PutRuleInput{
		Name:               aws.String(ruleName),
		Description:        aws.String("The scheduled deletion of an Organizations account"),
		ScheduleExpression: aws.String(cronAt(fireAt)),
		State:              aws.String(eventbridge.RuleStateEnabled),
	})
	if err != nil {
		return fmt.Errorf("scheduler: put rule %s: %w", ruleName, err)
	}

	_, err = s.client.PutTargetsWithContext(ctx, &eventbridge.PutTargetsInput{
		Rule: aws.String(ruleName),
		Targets: []*eventbridge.Target{{
			Arn:   aws.String(s.targetArn),
			Id:    aws.String("controller"),
			Input: aws.String(string(input)),
		}},
	})
	if err != nil {
		return fmt.Errorf("scheduler: put targets for %s: %w", ruleName, err)
	}

	l.Infof("scheduled %s to fire at %s", ruleName, fireAt.UTC().Format(time.RFC3339))

	return nil
}

// CancelInvocation removes the rule and its target.
func (s *Scheduler) CancelInvocation(ctx context.Context, ruleName string) error {
	_, err := s.client.RemoveTargetsWithContext(ctx, &eventbridge.RemoveTargetsInput{
		Rule: aws.String(ruleName),
		Ids:  aws.StringSlice([]string{"controller"}),
	})
	if err != nil {
		return fmt.Errorf("scheduler: remove targets for %s: %w", ruleName, err)
	}

	_, err = s.client.DeleteRuleWithContext(ctx, &eventbridge.DeleteRuleInput{
		Name: aws.String(ruleName),
	})
	if err != nil {
		return fmt.Errorf("scheduler: delete rule %s: %w", ruleName, err)
	}

	return nil
}

// cronAt renders a single-shot cron expression for the given instant.
func cronAt(t time.Time) string {
	t = t.UTC()

	return fmt.Sprintf("cron(%d %d %d %d ? %d)",
		t.Minute(), t.Hour(), t.Day(), int(t.Month()), t.Year())
}

// DefaultTargetArn builds the controller's own invocation ARN the way the
// deployment names it.
func DefaultTargetArn() string {
	return fmt.Sprintf("arn:aws:lambda:%s:%s:function:%s",
		common.Region, common.AccountID, common.GetEnv("FUNCTION_NAME", "AccountAutomator"))
}
