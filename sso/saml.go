// Package sso consumes SAML responses posted to the portal and tracks
// the signed-in session.
package sso

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMalformedResponse = errors.New("saml response is malformed")
	ErrResponseExpired   = errors.New("saml assertion is no longer valid")
	ErrNoIdentity        = errors.New("saml assertion carries no subject")
)

// Identity is the portal caller extracted from a SAML assertion. GUID
// is matched against the AccountOwnerGUID tag for authorization.
type Identity struct {
	NameID string
	GUID   string
	Email  string
	Name   string
}

// Attribute names emitted by the identity provider.
const (
	attrGUID  = "https://aws.amazon.com/SAML/Attributes/PrincipalTag:GUID"
	attrEmail = "email"
	attrName  = "displayName"
)

type samlResponse struct {
	XMLName   xml.Name      `xml:"Response"`
	Assertion samlAssertion `xml:"Assertion"`
}

type samlAssertion struct {
	Subject struct {
		NameID string `xml:"NameID"`
	} `xml:"Subject"`
	Conditions struct {
		NotBefore    string `xml:"NotBefore,attr"`
		NotOnOrAfter string `xml:"NotOnOrAfter,attr"`
	} `xml:"Conditions"`
	AttributeStatement struct {
		Attributes []samlAttribute `xml:"Attribute"`
	} `xml:"AttributeStatement"`
}

type samlAttribute struct {
	Name   string   `xml:"Name,attr"`
	Values []string `xml:"AttributeValue"`
}

// ParseResponse decodes a base64 SAMLResponse form value and extracts
// the caller identity, enforcing the assertion validity window.
func ParseResponse(encoded string, now time.Time) (*Identity, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var resp samlResponse

	if err := xml.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if err := checkValidity(resp.Assertion, now); err != nil {
		return nil, err
	}

	nameID := strings.TrimSpace(resp.Assertion.Subject.NameID)
	if nameID == "" {
		return nil, ErrNoIdentity
	}

	id := &Identity{NameID: nameID}

	for _, attr := range resp.Assertion.AttributeStatement.Attributes {
		if len(attr.Values) == 0 {
			continue
		}

		value := strings.TrimSpace(attr.Values[0])

		switch attr.Name {
		case attrGUID:
			id.GUID = value
		case attrEmail:
			id.Email = value
		case attrName:
			id.Name = value
		}
	}

	if id.GUID == "" {
		// Providers without the tag attribute identify users by NameID.
		id.GUID = nameID
	}

	return id, nil
}

func checkValidity(a samlAssertion, now time.Time) error {
	if v := a.Conditions.NotOnOrAfter; v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return fmt.Errorf("%w: bad NotOnOrAfter: %v", ErrMalformedResponse, err)
		}

		if !now.Before(t) {
			return ErrResponseExpired
		}
	}

	if v := a.Conditions.NotBefore; v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return fmt.Errorf("%w: bad NotBefore: %v", ErrMalformedResponse, err)
		}

		if now.Before(t) {
			return ErrResponseExpired
		}
	}

	return nil
}
