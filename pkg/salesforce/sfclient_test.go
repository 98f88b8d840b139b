package salesforce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	gosf "github.com/k-capehart/go-salesforce/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestSFClient creates an sfClient backed by an httptest server.
func newTestSFClient(t *testing.T, handler http.Handler) (Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)

	sf, err := gosf.Init(gosf.Creds{
		AccessToken: "test-token",
		Domain:      ts.URL,
	},
		gosf.WithValidateAuthentication(false),
		gosf.WithRoundTripper(http.DefaultTransport),
	)
	require.NoError(t, err)
	require.NotNil(t, sf)

	return NewClient(sf), ts
}

func TestSFClient_Query(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/query")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"totalSize": 1,
			"done":      true,
			"records": []map[string]any{
				{
					"attributes": map[string]any{"type": "Contact"},
					"Id":         "003xx",
					"Email":      "alice@acme.com",
					"Name":       "Alice Smith",
				},
			},
		})
	})

	c, ts := newTestSFClient(t, handler)
	defer ts.Close()

	var contacts []Contact
	err := c.Query(context.Background(), "SELECT Id, Email, Name FROM Contact LIMIT 1", &contacts)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "alice@acme.com", contacts[0].Email)
}

func TestSFClient_Query_Error(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"message": "malformed query", "errorCode": "MALFORMED_QUERY"},
		})
	})

	c, ts := newTestSFClient(t, handler)
	defer ts.Close()

	var contacts []Contact
	err := c.Query(context.Background(), "SELECT bogus FROM Contact", &contacts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sf: query")
}

func TestSFClient_DescribeSObject(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/sobjects/Contact/describe")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":  "Contact",
			"label": "Contact",
			"fields": []map[string]any{
				{"name": "Email", "label": "Email", "type": "email", "length": 80, "updateable": true},
			},
		})
	})

	c, ts := newTestSFClient(t, handler)
	defer ts.Close()

	desc, err := c.DescribeSObject(context.Background(), "Contact")
	require.NoError(t, err)
	assert.Equal(t, "Contact", desc.Name)
	require.Len(t, desc.Fields, 1)
	assert.Equal(t, "Email", desc.Fields[0].Name)
}
