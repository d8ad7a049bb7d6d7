package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateAccountRequestValidate(t *testing.T) {
	const ceiling = 1000.0

	valid := func() CreateAccountRequest {
		return CreateAccountRequest{
			Name:  "sandbox",
			Email: "sandbox@example.com",
		}
	}

	t.Run("minimal request passes", func(t *testing.T) {
		req := valid()
		reason, ok := req.Validate(ceiling)
		assert.True(t, ok)
		assert.Empty(t, reason)
	})

	t.Run("name boundaries", func(t *testing.T) {
		tests := []struct {
			length int
			ok     bool
		}{
			{length: 0, ok: false},
			{length: 1, ok: true},
			{length: 50, ok: true},
			{length: 51, ok: false},
		}

		for _, tt := range tests {
			req := valid()
			req.Name = strings.Repeat("a", tt.length)

			reason, ok := req.Validate(ceiling)
			assert.Equal(t, tt.ok, ok, "name length %d", tt.length)

			if !tt.ok {
				assert.Equal(t, ReasonBadName, reason)
			}
		}
	})

	t.Run("email boundaries", func(t *testing.T) {
		tests := []struct {
			length int
			ok     bool
		}{
			{length: 5, ok: false},
			{length: 6, ok: true},
			{length: 64, ok: true},
			{length: 65, ok: false},
		}

		for _, tt := range tests {
			req := valid()
			req.Email = strings.Repeat("e", tt.length)

			reason, ok := req.Validate(ceiling)
			assert.Equal(t, tt.ok, ok, "email length %d", tt.length)

			if !tt.ok {
				assert.Equal(t, ReasonBadEmail, reason)
			}
		}
	})

	t.Run("notes reject unsafe characters", func(t *testing.T) {
		req := valid()
		req.Notes = "why!"

		reason, ok := req.Validate(ceiling)
		assert.False(t, ok)
		assert.Equal(t, ReasonBadNotes, reason)
	})

	t.Run("notes allow tag-safe punctuation", func(t *testing.T) {
		req := valid()
		req.Notes = "team=infra purpose:testing a+b @here"

		_, ok := req.Validate(ceiling)
		assert.True(t, ok)
	})

	t.Run("spend cap boundaries", func(t *testing.T) {
		tests := []struct {
			cap string
			ok  bool
		}{
			{cap: "", ok: true},
			{cap: "0", ok: false},
			{cap: "-5", ok: false},
			{cap: "abc", ok: false},
			{cap: "1000", ok: true},
			{cap: "1001", ok: false},
			{cap: "0.5", ok: true},
		}

		for _, tt := range tests {
			req := valid()
			req.SpendCap = tt.cap

			reason, ok := req.Validate(ceiling)
			assert.Equal(t, tt.ok, ok, "spend cap %q", tt.cap)

			if !tt.ok {
				assert.Contains(t, reason, "spend cap")
			}
		}
	})
}
