package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoAuth(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "issued-" + r.FormValue("grant_type"),
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
			return
		}
		_, _ = w.Write([]byte(r.Header.Get("Authorization")))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestCredentialsHTTPClient(t *testing.T) {
	ts := echoAuth(t)
	tests := []struct {
		name  string
		creds Credentials
		want  string
	}{
		{"none", Credentials{}, ""},
		{"bearer", Credentials{Flow: AuthBearer, Token: "abc"}, "Bearer abc"},
		{"basic", Credentials{Flow: AuthBasic, Username: "u", Password: "p"}, "Basic dTpw"},
		{"client credentials", Credentials{
			Flow: AuthClientCredentials, TokenURL: ts.URL + "/token", ClientID: "id", ClientSecret: "secret",
		}, "Bearer issued-client_credentials"},
		{"password", Credentials{
			Flow: AuthPassword, TokenURL: ts.URL + "/token", ClientID: "id", ClientSecret: "secret",
			Username: "u", Password: "p",
		}, "Bearer issued-password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc, err := tt.creds.HTTPClient(context.Background(), nil)
			require.NoError(t, err)
			resp, err := hc.Get(ts.URL + "/echo")
			require.NoError(t, err)
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(body))
		})
	}
}

func TestCredentialsErrors(t *testing.T) {
	tests := []Credentials{
		{Flow: AuthBearer},
		{Flow: AuthBasic},
		{Flow: AuthClientCredentials, ClientID: "id"},
		{Flow: AuthPassword, TokenURL: "http://x", ClientID: "id", ClientSecret: "s"},
		{Flow: "kerberos"},
	}
	for _, c := range tests {
		_, err := c.HTTPClient(context.Background(), nil)
		assert.Error(t, err, c.Flow)
	}
}
