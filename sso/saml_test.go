package sso

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeResponse(body string) string {
	return base64.StdEncoding.EncodeToString([]byte(body))
}

const assertionTemplate = `<Response xmlns="urn:oasis:names:tc:SAML:2.0:protocol">
  <Assertion xmlns="urn:oasis:names:tc:SAML:2.0:assertion">
    <Subject><NameID>jdoe@example.com</NameID></Subject>
    <Conditions NotBefore="2026-01-01T00:00:00Z" NotOnOrAfter="2026-01-01T01:00:00Z"/>
    <AttributeStatement>
      <Attribute Name="https://aws.amazon.com/SAML/Attributes/PrincipalTag:GUID">
        <AttributeValue>guid-1234</AttributeValue>
      </Attribute>
      <Attribute Name="email"><AttributeValue>jdoe@example.com</AttributeValue></Attribute>
      <Attribute Name="displayName"><AttributeValue>J Doe</AttributeValue></Attribute>
    </AttributeStatement>
  </Assertion>
</Response>`

func TestParseResponse(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 30, 0, 0, time.UTC)

	id, err := ParseResponse(encodeResponse(assertionTemplate), now)
	require.NoError(t, err)
	assert.Equal(t, "jdoe@example.com", id.NameID)
	assert.Equal(t, "guid-1234", id.GUID)
	assert.Equal(t, "jdoe@example.com", id.Email)
	assert.Equal(t, "J Doe", id.Name)
}

func TestParseResponse_expired(t *testing.T) {
	now := time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC)

	_, err := ParseResponse(encodeResponse(assertionTemplate), now)
	assert.ErrorIs(t, err, ErrResponseExpired)
}

func TestParseResponse_guidFallsBackToNameID(t *testing.T) {
	body := `<Response><Assertion><Subject><NameID>jdoe@example.com</NameID></Subject></Assertion></Response>`

	id, err := ParseResponse(encodeResponse(body), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "jdoe@example.com", id.GUID)
}

func TestParseResponse_malformed(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{name: "not base64", encoded: "%%%%"},
		{name: "not xml", encoded: encodeResponse("hello")},
		{name: "no subject", encoded: encodeResponse("<Response><Assertion/></Response>")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse(tt.encoded, time.Now())
			assert.Error(t, err)
		})
	}
}

func TestSessionStore(t *testing.T) {
	store := NewSessionStore(time.Hour)

	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	token := store.Create(Identity{GUID: "guid-1234"})

	id, err := store.Get(token)
	require.NoError(t, err)
	assert.Equal(t, "guid-1234", id.GUID)

	_, err = store.Get("unknown")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	current = current.Add(2 * time.Hour)
	_, err = store.Get(token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	token = store.Create(Identity{GUID: "guid-5678"})
	store.Revoke(token)
	_, err = store.Get(token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
