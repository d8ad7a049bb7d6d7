package orchestrator

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/orgfoundry/account-controller/connectflow"
	"github.com/orgfoundry/account-controller/directory"
	"github.com/orgfoundry/account-controller/logger"
	"github.com/orgfoundry/account-controller/mailer"
)

const actionRemoveFromOrg = "removeAccountFromOrg"

// Dispatcher classifies the opaque JSON payloads the event endpoint
// receives and routes each to its handler. Unknown shapes are logged
// and dropped, never failed, so a stray event cannot wedge retries.
type Dispatcher struct {
	loggerProvider logger.Provider
	accounts       IAccountService
	stacks         *StackHandler
	registry       connectflow.IRegistryStore
}

func NewDispatcher(log logger.Provider, accounts IAccountService, stacks *StackHandler, registry connectflow.IRegistryStore) *Dispatcher {
	return &Dispatcher{
		loggerProvider: log,
		accounts:       accounts,
		stacks:         stacks,
		registry:       registry,
	}
}

// Dispatch routes one raw event. The returned value is non-nil only for
// events whose sender expects a body, such as the contact flow lookup.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) (interface{}, error) {
	l := d.loggerProvider(ctx)

	body := string(raw)

	switch {
	case gjson.Get(body, "Name").String() == "ContactFlowEvent":
		return d.handleContactFlow(ctx)

	case gjson.Get(body, "RequestType").Exists() && gjson.Get(body, "ResourceType").Exists():
		return nil, d.stacks.Handle(ctx, raw)

	case gjson.Get(body, "action").String() == actionRemoveFromOrg:
		accountID := gjson.Get(body, "account.id").String()
		ruleName := gjson.Get(body, "ruleName").String()

		return nil, d.accounts.HandleScheduledRemoval(ctx, accountID, ruleName)

	case gjson.Get(body, "detail.eventName").String() == "TagResource":
		return nil, d.handleTagChange(ctx, body)

	case gjson.Get(body, "email").Exists():
		return nil, d.accounts.RequestPasswordReset(ctx, gjson.Get(body, "email").String())

	case gjson.Get(body, "Records.0.s3").Exists():
		return nil, d.handleStoredEmail(ctx, body)

	case gjson.Get(body, "Records.0.Sns").Exists():
		return nil, d.handleBudgetAlarm(ctx, body)

	default:
		l.Warningf("dropping unrecognized event: %.512s", body)
		return nil, nil
	}
}

func (d *Dispatcher) handleContactFlow(ctx context.Context) (*connectflow.PromptResponse, error) {
	registry, err := d.registry.Load(ctx)
	if err != nil {
		return nil, err
	}

	return registry.PromptsForCode()
}

// handleTagChange reacts to org tag mutations recorded by CloudTrail.
// Delete=true starts the closure flow; a new owner GUID triggers the
// SSO grant. Keys and values match case-insensitively, same as Tags.Get,
// because event writers disagree on casing.
func (d *Dispatcher) handleTagChange(ctx context.Context, body string) error {
	accountID := gjson.Get(body, "detail.requestParameters.resourceId").String()
	if accountID == "" {
		return nil
	}

	for _, tag := range gjson.Get(body, "detail.requestParameters.tags").Array() {
		key := tag.Get("key").String()
		value := tag.Get("value").String()

		switch {
		case strings.EqualFold(key, directory.TagDelete) && strings.EqualFold(value, "true"):
			if err := d.accounts.StartDeletion(ctx, accountID); err != nil {
				return err
			}

		case strings.EqualFold(key, directory.TagAccountOwnerGUID) && value != "":
			if err := d.accounts.GrantOwnerAccess(ctx, accountID); err != nil {
				return err
			}
		}
	}

	return nil
}

// handleStoredEmail processes every stored message in the notification.
// SES usually sends one record per event, but a batch must not drop
// messages past the first.
func (d *Dispatcher) handleStoredEmail(ctx context.Context, body string) error {
	for _, record := range gjson.Get(body, "Records").Array() {
		s3 := record.Get("s3")
		if !s3.Exists() {
			continue
		}

		loc := mailer.StoredLocation{
			Bucket: s3.Get("bucket.name").String(),
			Key:    s3.Get("object.key").String(),
		}

		if err := d.accounts.HandleInboundEmail(ctx, loc); err != nil {
			return err
		}
	}

	return nil
}

// handleBudgetAlarm marks each over-budget account for deletion. The
// tag change event then drives the rest of the flow.
func (d *Dispatcher) handleBudgetAlarm(ctx context.Context, body string) error {
	l := d.loggerProvider(ctx)

	for _, record := range gjson.Get(body, "Records").Array() {
		message := record.Get("Sns.Message").String()
		if message == "" {
			continue
		}

		accountID := gjson.Get(message, "AWSAccountId").String()
		if accountID == "" {
			l.Warningf("budget alarm carries no account id: %.512s", message)
			continue
		}

		l.Infof("budget exceeded on account %s, marking for deletion", accountID)

		if err := d.accounts.ForceDeletion(ctx, accountID); err != nil {
			return err
		}
	}

	return nil
}
