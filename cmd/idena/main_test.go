package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nodeRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     int               `json:"id"`
}

// newNode serves canned responses keyed by JSON-RPC method.
func newNode(t *testing.T, responses map[string]string) (*httptest.Server, *[]nodeRequest) {
	var requests []nodeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req nodeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)
		res, ok := responses[req.Method]
		if !ok {
			http.Error(w, "unknown method", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(res))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func run(t *testing.T, args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEpochCommand(t *testing.T) {
	srv, requests := newNode(t, map[string]string{
		"dna_epoch": `{"id":1,"result":{"epoch":184,"nextValidation":"2019-05-08T19:40:00+02:00","currentPeriod":"None"}}`,
	})

	out, err := run(t, "--rpc-url", srv.URL, "epoch")
	require.NoError(t, err)
	require.Len(t, *requests, 1)
	assert.Equal(t, 1, (*requests)[0].ID)
	assert.Contains(t, out, `"epoch": 184`)
	assert.Contains(t, out, `"currentPeriod": "None"`)
}

func TestIdentityCommandUsesCoinbase(t *testing.T) {
	srv, requests := newNode(t, map[string]string{
		"dna_getCoinbaseAddr": `{"id":1,"result":"0xf228fa1e9236343c7d44283b5ffcf9ba50df37e8"}`,
		"dna_identity":        `{"id":1,"result":{"address":"0xf228fa1e9236343c7d44283b5ffcf9ba50df37e8","stake":"10","state":"Human"}}`,
	})

	out, err := run(t, "--rpc-url", srv.URL, "identity")
	require.NoError(t, err)
	require.Len(t, *requests, 2)
	assert.Equal(t, "dna_getCoinbaseAddr", (*requests)[0].Method)
	assert.Equal(t, "dna_identity", (*requests)[1].Method)
	assert.Contains(t, out, `"state": "Human"`)
}

func TestIdentityCommandRejectsBadAddress(t *testing.T) {
	srv, requests := newNode(t, nil)

	_, err := run(t, "--rpc-url", srv.URL, "identity", "not-an-address")
	assert.Error(t, err)
	assert.Empty(t, *requests)
}

func TestKillCommandFailsOnErrorPayload(t *testing.T) {
	srv, requests := newNode(t, map[string]string{
		"dna_sendTransaction": `{"id":1,"error":{"code":-32000,"message":"insufficient funds"}}`,
	})

	out, err := run(t, "--rpc-url", srv.URL, "kill")
	assert.Error(t, err)
	assert.Contains(t, out, "insufficient funds")
	require.Len(t, *requests, 1)
	assert.JSONEq(t, `{"type":3}`, string((*requests)[0].Params[0]))
}

func TestFlipCommands(t *testing.T) {
	srv, requests := newNode(t, map[string]string{
		"flip_get":    `{"id":1,"result":{"hex":"0xcafe"}}`,
		"flip_submit": `{"id":1,"result":{"txHash":"0x01","hash":"flipHash"}}`,
	})
	dir := t.TempDir()

	out := filepath.Join(dir, "flip.bin")
	_, err := run(t, "--rpc-url", srv.URL, "flip", "get", "flipHash", "--out", out)
	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xca, 0xfe}, data)

	printed, err := run(t, "--rpc-url", srv.URL, "flip", "submit", out)
	require.NoError(t, err)
	assert.Contains(t, printed, `"txHash": "0x01"`)

	require.Len(t, *requests, 2)
	assert.JSONEq(t, `"flipHash"`, string((*requests)[0].Params[0]))
	assert.JSONEq(t, `"0xcafe"`, string((*requests)[1].Params[0]))
}

func TestLoadOptions(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "idena.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("rpc-url: http://node:9009\napi-key: from-file\ntimeout: 3s\n"), 0o600))
	t.Setenv("IDENA_API_KEY", "from-env")

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--log-level", "debug"}))

	opts, err := loadOptions(cfg, cmd.Flags())
	require.NoError(t, err)
	assert.Equal(t, "http://node:9009", opts.RpcURL)
	assert.Equal(t, "from-env", opts.APIKey)
	assert.Equal(t, 3*time.Second, opts.Timeout)
	assert.Equal(t, "debug", opts.LogLevel)

	_, err = loadOptions(filepath.Join(dir, "missing.yaml"), cmd.Flags())
	assert.Error(t, err)
}
