package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/orgfoundry/account-controller/directory"
	"github.com/orgfoundry/account-controller/mailer"
)

// HandleInboundEmail processes a message SES dropped in the bucket. A
// password reset email advances the deletion flow; anything else is
// forwarded to the account's forwarding address, or to the master
// inbox when none is tagged.
func (s *AccountService) HandleInboundEmail(ctx context.Context, loc mailer.StoredLocation) error {
	l := s.loggerProvider(ctx)

	msg, err := s.mail.FetchStoredMessage(ctx, loc)
	if err != nil {
		return s.mail.SendFallbackNotice(ctx, loc)
	}

	recipient := msg.Recipient()
	if recipient == "" {
		l.Warningf("message %s carries no parsable recipient", loc)
		return s.mail.SendFallbackNotice(ctx, loc)
	}

	account, err := s.dir.FindAccountByEmail(ctx, recipient)
	if err != nil {
		if errors.Is(err, directory.ErrAccountNotFound) {
			l.Infof("no account matches recipient %s, forwarding to master", recipient)
			return s.forwardMessage(ctx, msg, loc, nil, directory.Tags{})
		}

		return err
	}

	tags, err := s.dir.GetTags(ctx, account.ID)
	if err != nil {
		return err
	}

	link, err := msg.ResetLink()
	if err == nil {
		return s.continueDeletion(ctx, account, tags, link)
	}

	if !errors.Is(err, mailer.ErrNoResetLink) {
		return err
	}

	return s.forwardMessage(ctx, msg, loc, account, tags)
}

// continueDeletion consumes the reset link: set the root password, and
// when the account is marked for deletion, sign in as root and walk the
// closure wizard in the same session.
func (s *AccountService) continueDeletion(ctx context.Context, account *directory.Account, tags directory.Tags, link string) error {
	l := s.loggerProvider(ctx)

	deletable := tags.MarkedForDeletion()

	closed, err := s.console.CompletePasswordReset(ctx, link, account.Email, deletable)
	if err != nil {
		return err
	}

	if !deletable {
		l.Infof("reset completed for %s without a deletion mark, leaving account open", account.ID)
		return nil
	}

	if closed {
		if err := s.dir.SetTags(ctx, account.ID, directory.Tags{
			directory.TagAccountDeletionTime: s.now().UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}

	_, err = s.RemoveAccountFromOrg(ctx, account)

	return err
}

func (s *AccountService) forwardMessage(ctx context.Context, msg *mailer.Message, loc mailer.StoredLocation, account *directory.Account, tags directory.Tags) error {
	dest := tags.ForwardingAddress()
	if dest == "" {
		dest = s.cfg.MasterEmail
	}

	vars := mailer.SubjectVars{
		Subject: msg.Subject,
		From:    msg.From,
		To:      msg.To,
	}

	if account != nil {
		vars.AccountID = account.ID
		vars.AccountName = account.Name
		vars.AccountEmail = account.Email
	}

	return s.mail.ForwardOrNotify(ctx, msg, loc, dest, s.mail.RenderSubject(vars))
}
