package sheets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCode   string
		wantErr    bool
	}{
		{name: "code delivered", query: "state=s1&code=abc", wantStatus: http.StatusOK, wantCode: "abc"},
		{name: "state mismatch", query: "state=evil&code=abc", wantStatus: http.StatusBadRequest, wantErr: true},
		{name: "consent denied", query: "state=s1&error=access_denied", wantStatus: http.StatusBadRequest, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codes := make(chan string, 1)
			errs := make(chan error, 1)
			handler := callbackHandler("s1", codes, errs)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantErr {
				assert.Len(t, errs, 1)
				assert.Empty(t, codes)
				return
			}
			require.Len(t, codes, 1)
			assert.Equal(t, tt.wantCode, <-codes)
		})
	}
}

func TestCallbackHandler_RepeatCallbacksDoNotBlock(t *testing.T) {
	codes := make(chan string, 1)
	errs := make(chan error, 1)
	handler := callbackHandler("s1", codes, errs)

	for range 3 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=abc", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Len(t, codes, 1)
}

func TestTokenFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	expiry := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	token := &oauth2.Token{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer", Expiry: expiry}

	require.NoError(t, saveToken(path, token))

	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "rt", loaded.RefreshToken)
	assert.Equal(t, "at", loaded.AccessToken)
	assert.True(t, loaded.Expiry.Equal(expiry))

	_, err = LoadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestAuthorize(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenServer.Close()

	tokenFile := filepath.Join(t.TempDir(), "token.json")
	cfg := OAuth2Config{
		ClientID:     "client",
		ClientSecret: "secret",
		TokenFile:    tokenFile,
		ListenAddr:   "127.0.0.1:0",
		Endpoint: &oauth2.Endpoint{
			AuthURL:  tokenServer.URL + "/auth",
			TokenURL: tokenServer.URL + "/token",
		},
	}

	// Play the browser: follow the consent URL's redirect with a code.
	onURL := func(consent string) {
		u, err := url.Parse(consent)
		if !assert.NoError(t, err) {
			return
		}
		q := u.Query()
		assert.Equal(t, "offline", q.Get("access_type"))
		callback := q.Get("redirect_uri") + "?code=the-code&state=" + url.QueryEscape(q.Get("state"))
		go func() {
			resp, err := http.Get(callback) //nolint:gosec,noctx // local test server
			if err == nil {
				_ = resp.Body.Close()
			}
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	token, err := Authorize(ctx, cfg, onURL)
	require.NoError(t, err)
	assert.Equal(t, "rt", token.RefreshToken)

	saved, err := LoadToken(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "rt", saved.RefreshToken)
}

func TestAuthorize_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	_, err := Authorize(ctx, OAuth2Config{ClientID: "c", ClientSecret: "s", ListenAddr: "127.0.0.1:0"}, func(string) { cancel() })
	assert.ErrorIs(t, err, context.Canceled)
}
