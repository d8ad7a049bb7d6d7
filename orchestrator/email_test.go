package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgfoundry/account-controller/directory"
	"github.com/orgfoundry/account-controller/mailer"
)

const resetLinkFixture = "https://signin.aws.amazon.com/resetpassword?type=RootUser&token=abc123"

func resetMessage(to string) *mailer.Message {
	return &mailer.Message{
		From:    "no-reply@signin.aws.amazon.com",
		To:      to,
		Subject: "Password recovery",
		Body:    "Follow " + resetLinkFixture + " to recover your password.",
	}
}

func plainForwardMessage(to string) *mailer.Message {
	return &mailer.Message{
		From:    "billing@example.com",
		To:      to,
		Subject: "Invoice",
		Body:    "Monthly invoice attached.",
	}
}

func TestHandleInboundEmailResetLink(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)

	t.Run("marked account gets closed and removal scheduled", func(t *testing.T) {
		f := newServiceFixture(t)
		f.svc.now = func() time.Time { return now }
		f.console.closeResult = true

		account := &directory.Account{
			ID:              "111111111111",
			Email:           "sandbox@aws.example.com",
			JoinedTimestamp: now.Add(-24 * time.Hour),
		}
		f.dir.accounts[account.ID] = account
		f.dir.tags[account.ID] = directory.Tags{directory.TagDelete: "true"}

		loc := mailer.StoredLocation{Bucket: "inbound", Key: "msg-1"}
		f.mail.messages["msg-1"] = resetMessage(account.Email)

		require.NoError(t, f.svc.HandleInboundEmail(ctx, loc))

		assert.Equal(t, []string{resetLinkFixture}, f.console.resetsCompleted)

		_, hasDeletionTime := f.dir.tags[account.ID].DeletionTime()
		assert.True(t, hasDeletionTime)

		assert.Len(t, f.sched.scheduled, 1, "removal should be scheduled inside the grace window")
	})

	t.Run("already suspended skips deletion time tag", func(t *testing.T) {
		f := newServiceFixture(t)
		f.svc.now = func() time.Time { return now }
		f.console.closeResult = false

		account := &directory.Account{
			ID:              "111111111111",
			Email:           "sandbox@aws.example.com",
			JoinedTimestamp: now.Add(-10 * 24 * time.Hour),
		}
		f.dir.accounts[account.ID] = account
		f.dir.tags[account.ID] = directory.Tags{directory.TagDelete: "true"}

		f.mail.messages["msg-1"] = resetMessage(account.Email)

		require.NoError(t, f.svc.HandleInboundEmail(ctx, mailer.StoredLocation{Bucket: "inbound", Key: "msg-1"}))

		_, hasDeletionTime := f.dir.tags[account.ID].DeletionTime()
		assert.False(t, hasDeletionTime)
		assert.Equal(t, []string{"111111111111"}, f.dir.removed)
	})

	t.Run("unmarked account only resets", func(t *testing.T) {
		f := newServiceFixture(t)

		account := &directory.Account{ID: "111111111111", Email: "sandbox@aws.example.com"}
		f.dir.accounts[account.ID] = account
		f.dir.tags[account.ID] = directory.Tags{directory.TagAccountOwnerGUID: "guid-owner"}

		f.mail.messages["msg-1"] = resetMessage(account.Email)

		require.NoError(t, f.svc.HandleInboundEmail(ctx, mailer.StoredLocation{Bucket: "inbound", Key: "msg-1"}))

		assert.Len(t, f.console.resetsCompleted, 1)
		assert.Empty(t, f.dir.removed)
		assert.Empty(t, f.sched.scheduled)
	})
}

func TestHandleInboundEmailForwarding(t *testing.T) {
	ctx := context.Background()

	t.Run("forwards to tagged address", func(t *testing.T) {
		f := newServiceFixture(t)

		account := &directory.Account{ID: "111111111111", Email: "sandbox@aws.example.com"}
		f.dir.accounts[account.ID] = account
		f.dir.tags[account.ID] = directory.Tags{
			directory.TagEmailForwardingAddress: "owner@example.com",
		}

		f.mail.messages["msg-1"] = plainForwardMessage(account.Email)

		require.NoError(t, f.svc.HandleInboundEmail(ctx, mailer.StoredLocation{Bucket: "inbound", Key: "msg-1"}))

		require.Len(t, f.mail.forwards, 1)
		assert.Equal(t, "owner@example.com", f.mail.forwards[0].Dest)
		assert.Equal(t, "FW: Invoice", f.mail.forwards[0].Subject)
	})

	t.Run("falls back to master inbox without forwarding tag", func(t *testing.T) {
		f := newServiceFixture(t)

		account := &directory.Account{ID: "111111111111", Email: "sandbox@aws.example.com"}
		f.dir.accounts[account.ID] = account
		f.dir.tags[account.ID] = directory.Tags{}

		f.mail.messages["msg-1"] = plainForwardMessage(account.Email)

		require.NoError(t, f.svc.HandleInboundEmail(ctx, mailer.StoredLocation{Bucket: "inbound", Key: "msg-1"}))

		require.Len(t, f.mail.forwards, 1)
		assert.Equal(t, "master@example.com", f.mail.forwards[0].Dest)
	})

	t.Run("unknown recipient goes to master", func(t *testing.T) {
		f := newServiceFixture(t)

		f.mail.messages["msg-1"] = plainForwardMessage("stranger@aws.example.com")

		require.NoError(t, f.svc.HandleInboundEmail(ctx, mailer.StoredLocation{Bucket: "inbound", Key: "msg-1"}))

		require.Len(t, f.mail.forwards, 1)
		assert.Equal(t, "master@example.com", f.mail.forwards[0].Dest)
	})

	t.Run("unreadable message sends fallback notice", func(t *testing.T) {
		f := newServiceFixture(t)

		loc := mailer.StoredLocation{Bucket: "inbound", Key: "missing"}
		require.NoError(t, f.svc.HandleInboundEmail(ctx, loc))

		assert.Equal(t, []mailer.StoredLocation{loc}, f.mail.fallbacks)
	})
}
