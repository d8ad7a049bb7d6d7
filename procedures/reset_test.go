package procedures

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgfoundry/account-controller/captcha"
)

func TestLibrary_Login(t *testing.T) {
	f := newFixture(t)

	err := f.lib.WithSession(context.Background(), f.lib.Login)
	require.NoError(t, err)

	assert.Equal(t, []string{"automation"}, f.fake.TypedInto("#username"))
	assert.Equal(t, []string{"hunter2"}, f.fake.TypedInto("#password"))
	assert.True(t, f.fake.Clicked("#signin_button"))
}

func TestLibrary_TriggerReset(t *testing.T) {
	f := newFixture(t)
	f.fake.Attributes["#captcha_image/src"] = "https://console/captcha1.jpg"
	f.fake.Attributes["#password_recovery_captcha_image/src"] = "https://console/captcha2.jpg"

	err := f.lib.TriggerReset(context.Background(), f.fake, "sandbox-42@example.com")
	require.NoError(t, err)

	assert.Equal(t, []string{"sandbox-42@example.com"}, f.fake.TypedInto("#resolving_input"))
	assert.Equal(t, []string{"AB12CD"}, f.fake.TypedInto("#captchaGuess"))
	assert.Equal(t, []string{"AB12CD"}, f.fake.TypedInto("#password_recovery_captcha_guess"))
	assert.True(t, f.fake.Clicked("#root_forgot_password_link"))
	assert.True(t, f.fake.Clicked("#password_recovery_ok_button"))
}

func TestLibrary_TriggerReset_solverRecovers(t *testing.T) {
	f := newFixture(t)
	f.solver.failures = 3
	f.fake.Attributes["#captcha_image/src"] = "img"
	f.fake.Attributes["#password_recovery_captcha_image/src"] = "img"

	err := f.lib.TriggerReset(context.Background(), f.fake, "sandbox-42@example.com")
	require.NoError(t, err)
}

func TestLibrary_TriggerReset_solverExhausted(t *testing.T) {
	f := newFixture(t)
	f.solver.failures = 1000
	f.fake.Attributes["#captcha_image/src"] = "img"

	err := f.lib.TriggerReset(context.Background(), f.fake, "sandbox-42@example.com")
	assert.ErrorIs(t, err, captcha.ErrAttemptsExhausted)
	assert.Equal(t, captcha.DefaultMaxAttempts, f.solver.calls)
}

func TestLibrary_CompleteReset(t *testing.T) {
	f := newFixture(t)

	err := f.lib.CompleteReset(context.Background(), f.fake, "https://signin.aws.amazon.com/resetpassword?token=abc")
	require.NoError(t, err)

	assert.Equal(t, []string{"hunter2"}, f.fake.TypedInto("#new_password"))
	assert.Equal(t, []string{"hunter2"}, f.fake.TypedInto("#confirm_password"))
	assert.True(t, f.fake.Clicked("#reset_password_submit"))
}

func TestLibrary_RootSignIn_skipsAbsentCaptcha(t *testing.T) {
	f := newFixture(t)
	f.fake.Missing["#captcha_image"] = true

	err := f.lib.RootSignIn(context.Background(), f.fake, "sandbox-42@example.com")
	require.NoError(t, err)

	assert.Zero(t, f.solver.calls)
	assert.Equal(t, []string{"hunter2"}, f.fake.TypedInto("#password"))
	assert.True(t, f.fake.Clicked("#signin_button"))
}
