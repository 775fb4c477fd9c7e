package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

// ErrAuthTimeout is returned when nobody completes the browser consent.
var ErrAuthTimeout = errors.New("authentication timed out")

const authTimeout = 5 * time.Minute

// OAuth2Config holds OAuth2 configuration.
type OAuth2Config struct {
	ClientID     string
	ClientSecret string
	TokenFile    string
	// ListenAddr is where the consent callback is served. Defaults to
	// localhost:8080.
	ListenAddr string
	// Endpoint overrides Google's OAuth endpoint.
	Endpoint *oauth2.Endpoint
}

func (c OAuth2Config) oauthConfig(redirectURL string) *oauth2.Config {
	endpoint := google.Endpoint
	if c.Endpoint != nil {
		endpoint = *c.Endpoint
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  redirectURL,
		Scopes:       []string{sheets.SpreadsheetsScope},
	}
}

// callbackHandler forwards the authorization code from Google's redirect.
func callbackHandler(state string, codes chan<- string, errs chan<- error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			report(errs, fmt.Errorf("oauth callback state mismatch"))
			return
		}

		code := query.Get("code")
		if code == "" {
			http.Error(w, "no authorization code received", http.StatusBadRequest)
			report(errs, fmt.Errorf("no authorization code received: %s", query.Get("error")))
			return
		}

		report(codes, code)
		_, _ = fmt.Fprint(w, `<html><body>
			<h1>Authentication Successful!</h1>
			<p>You can close this window and return to the terminal.</p>
		</body></html>`)
	})
}

// report hands v to the waiting flow without blocking on repeat callbacks.
func report[T any](ch chan<- T, v T) {
	select {
	case ch <- v:
	default:
	}
}

// Authorize runs the browser consent flow and saves the token to
// TokenFile. onURL receives the consent URL to show the user.
func Authorize(ctx context.Context, cfg OAuth2Config, onURL func(string)) (*oauth2.Token, error) {
	addr := cfg.ListenAddr
	if addr == "" {
		addr = "localhost:8080"
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}

	oauthConfig := cfg.oauthConfig(fmt.Sprintf("http://%s/callback", listener.Addr()))
	state := fmt.Sprintf("goalpost-%d", time.Now().UnixNano())

	codes := make(chan string, 1)
	errs := make(chan error, 2)

	mux := http.NewServeMux()
	mux.Handle("/callback", callbackHandler(state, codes, errs))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			report(errs, fmt.Errorf("callback server failed: %w", serveErr))
		}
	}()
	defer func() {
		if shutdownErr := server.Shutdown(context.Background()); shutdownErr != nil {
			slog.Warn("Error shutting down callback server", "error", shutdownErr)
		}
	}()

	onURL(oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	var code string
	select {
	case code = <-codes:
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(authTimeout):
		return nil, ErrAuthTimeout
	}

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if cfg.TokenFile != "" {
		if err := saveToken(cfg.TokenFile, token); err != nil {
			return token, err
		}
		slog.Info("Token saved", "file", cfg.TokenFile)
	}

	return token, nil
}

// LoadToken loads a token from file.
func LoadToken(tokenFile string) (*oauth2.Token, error) {
	f, err := os.Open(tokenFile) // #nosec G304
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("failed to decode token %s: %w", tokenFile, err)
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	return nil
}
