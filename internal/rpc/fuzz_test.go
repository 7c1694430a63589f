package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// FuzzRPCRequestUnmarshal tests that arbitrary JSON does not panic
// when parsed as a JSON-RPC 2.0 request.
func FuzzRPCRequestUnmarshal(f *testing.F) {
	f.Add([]byte(`{"jsonrpc":"2.0","method":"wallet_list","params":null,"id":1}`))
	f.Add([]byte(`{"jsonrpc":"2.0","method":"wallet_get","params":{"address":"abc"},"id":"test"}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`null`))
	f.Add([]byte(`{"method":"","params":[]}`))
	f.Add([]byte(`{"jsonrpc":"2.0","method":"wallet_current","params":[1,2,3],"id":999}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			return
		}
		_ = req.Method
		_ = req.ID
	})
}

// FuzzStatelessHandlers feeds arbitrary params to the handlers that need no
// wallet service and checks every reply is a well-formed response.
func FuzzStatelessHandlers(f *testing.F) {
	f.Add("wallet_validateMnemonic", `{"mnemonic":"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"}`)
	f.Add("wallet_validateMnemonic", `{"mnemonic":"  ABANDON\tabandon "}`)
	f.Add("wallet_checkPassword", `{"password":"Str0ng!Pass"}`)
	f.Add("wallet_checkPassword", `{"password":""}`)
	f.Add("wallet_addressQR", `{"address":"CISP0000000000000000000000000000000000000000","size":64}`)
	f.Add("wallet_addressQR", `{"address":"CISP","size":-1}`)

	srv := New("127.0.0.1:0", nil)

	f.Fuzz(func(t *testing.T, method, params string) {
		body, err := json.Marshal(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  method,
			"params":  json.RawMessage(params),
			"id":      1,
		})
		if err != nil {
			return // params was not valid JSON
		}

		rec := httptest.NewRecorder()
		srv.handleRequest(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))

		var resp Response
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("reply is not JSON: %v", err)
		}
		if resp.JSONRPC != "2.0" {
			t.Fatalf("jsonrpc = %q", resp.JSONRPC)
		}
		if resp.Error == nil && resp.Result == nil {
			t.Fatal("reply has neither result nor error")
		}
	})
}
