package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
	ID     int    `json:"id"`
}

func TestNew(t *testing.T) {
	_, err := New(HTTPOptions{})
	assert.Error(t, err)

	_, err = New(HTTPOptions{URL: "localhost:9009"})
	assert.Error(t, err)

	_, err = New(HTTPOptions{URL: "ftp://localhost"})
	assert.Error(t, err)

	c, err := New(HTTPOptions{URL: "http://localhost:9009"})
	require.NoError(t, err)
	assert.Equal(t, http.DefaultClient, c.opts.HTTPClient)
}

func TestEndpoint(t *testing.T) {
	c, err := New(HTTPOptions{URL: "http://localhost:9009"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9009/", c.endpoint("/"))

	c, err = New(HTTPOptions{URL: "https://node.example/api/"})
	require.NoError(t, err)
	assert.Equal(t, "https://node.example/api/", c.endpoint("/"))
	assert.Equal(t, "https://node.example/api/rpc", c.endpoint("rpc"))
}

func TestPost(t *testing.T) {
	var received map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "desktop", r.Header.Get("X-Client"))
		b, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(b, &received))
		_, _ = w.Write([]byte(`{"id":1,"result":184}`))
	}))
	defer srv.Close()

	c, err := New(HTTPOptions{
		URL:        srv.URL,
		HTTPHeader: http.Header{"X-Client": []string{"desktop"}},
	})
	require.NoError(t, err)

	body, err := c.Post(context.TODO(), "/", request{Method: "dna_epoch", Params: []any{}, ID: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"result":184}`, string(body))
	assert.JSONEq(t, `"dna_epoch"`, string(received["method"]))
	assert.JSONEq(t, `[]`, string(received["params"]))
	assert.JSONEq(t, `1`, string(received["id"]))
	assert.NotContains(t, received, "key")
}

func TestPostWithAPIKey(t *testing.T) {
	var received map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"id":1,"result":null}`))
	}))
	defer srv.Close()

	c, err := New(HTTPOptions{URL: srv.URL, APIKey: "secret"})
	require.NoError(t, err)

	_, err = c.Post(context.TODO(), "/", request{Method: "dna_identities", Params: []any{}, ID: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `"secret"`, string(received["key"]))
	assert.JSONEq(t, `"dna_identities"`, string(received["method"]))
}

func TestPostHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := New(HTTPOptions{URL: srv.URL})
	require.NoError(t, err)

	body, err := c.Post(context.TODO(), "/", request{Method: "dna_epoch"})
	assert.Nil(t, body)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	assert.Equal(t, "unexpected http status 403: forbidden", httpErr.Error())
}

func TestPostTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c, err := New(HTTPOptions{URL: addr})
	require.NoError(t, err)

	_, err = c.Post(context.TODO(), "/", request{Method: "dna_epoch"})
	var urlErr *url.Error
	assert.ErrorAs(t, err, &urlErr)
}

func TestPostEncodeError(t *testing.T) {
	c, err := New(HTTPOptions{URL: "http://localhost:9009"})
	require.NoError(t, err)

	_, err = c.Post(context.TODO(), "/", make(chan int))
	assert.Error(t, err)
}
