package salesforce

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBody_Description(t *testing.T) {
	body := `{"name":"Contact","label":"Contact","fields":[{"name":"Email","label":"Email","type":"email","length":80,"updateable":true}]}`

	var desc SObjectDescription
	err := decodeBody(strings.NewReader(body), &desc)
	require.NoError(t, err)
	assert.Equal(t, "Contact", desc.Name)
	require.Len(t, desc.Fields, 1)
	assert.Equal(t, "Email", desc.Fields[0].Name)
	assert.Equal(t, "email", desc.Fields[0].Type)
	assert.Equal(t, 80, desc.Fields[0].Length)
	assert.True(t, desc.Fields[0].Updateable)
}

func TestDecodeBody_InvalidJSON(t *testing.T) {
	var desc SObjectDescription
	err := decodeBody(strings.NewReader(`{invalid json`), &desc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestDecodeBody_EmptyBody(t *testing.T) {
	var desc SObjectDescription
	err := decodeBody(strings.NewReader(""), &desc)
	assert.Error(t, err)
}

func TestDecodeBody_IntoSlice(t *testing.T) {
	body := `[{"Id":"003xx","Email":"jane@acme.com"},{"Id":"004xx","Email":"bob@acme.com"}]`

	var contacts []Contact
	err := decodeBody(strings.NewReader(body), &contacts)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "003xx", contacts[0].ID)
	assert.Equal(t, "bob@acme.com", contacts[1].Email)
}
