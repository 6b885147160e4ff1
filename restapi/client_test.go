package restapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bihealth/digestiflow-cli/flowcell"
)

func uuidPtr(s string) *string { return &s }

func TestClientResolveNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", "proj", false)
	_, err := c.Resolve(context.Background(), "M001", 1, "FC1")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestClientResolveOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/flowcells/proj/resolve/M001/1/FC1/", r.URL.Path)
		json.NewEncoder(w).Encode(flowcell.FlowCell{VendorID: "FC1", SodarUUID: uuidPtr("u-1")})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", "proj", false)
	fc, err := c.Resolve(context.Background(), "M001", 1, "FC1")
	require.NoError(t, err)
	assert.Equal(t, "FC1", fc.VendorID)
}

func TestClientFatalStatusIsNotNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", "proj", false)
	_, err := c.Resolve(context.Background(), "M001", 1, "FC1")
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
}

func TestClientCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body flowcell.FlowCell
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		body.SodarUUID = uuidPtr("new-uuid")
		json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", "proj", false)
	created, err := c.Create(context.Background(), flowcell.FlowCell{VendorID: "FC1"})
	require.NoError(t, err)
	require.NotNil(t, created.SodarUUID)
	assert.Equal(t, "new-uuid", *created.SodarUUID)
}

func TestClientListAndPostHistograms(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]map[string]interface{}{{"lane": 1}})
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", "proj", false)
	hists, err := c.ListHistograms(context.Background(), "fc-uuid")
	require.NoError(t, err)
	require.Len(t, hists, 1)
	assert.Equal(t, 1, hists[0].Lane)

	require.NoError(t, c.PostHistogram(context.Background(), "fc-uuid", hists[0]))
}
