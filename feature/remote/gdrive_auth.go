package remote

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

func loadOAuthConfig(cfg Config) (*oauth2.Config, error) {
	b, err := os.ReadFile(cfg.DriveCredentials)
	if err != nil {
		return nil, fmt.Errorf("gdrive credentials not found at %s: %w", cfg.DriveCredentials, err)
	}
	oc, err := google.ConfigFromJSON(b, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return oc, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gdrive auth needed, run 'diary remote auth' first: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(b, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return &token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	b, err := json.Marshal(token)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Authorize runs the interactive OAuth flow: it prints the consent URL to
// out, reads the code from in and stores the token at cfg.DriveToken.
func Authorize(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	oc, err := loadOAuthConfig(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Visit the URL for the auth dialog:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, oc.AuthCodeURL("state-token", oauth2.AccessTypeOffline))
	fmt.Fprintln(out)
	fmt.Fprint(out, "Enter the code here: ")

	code, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && code == "" {
		return fmt.Errorf("failed to read code: %w", err)
	}

	token, err := oc.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("failed to exchange token: %w", err)
	}
	if err := saveToken(cfg.DriveToken, token); err != nil {
		return err
	}
	fmt.Fprintf(out, "Token saved to %s\n", cfg.DriveToken)
	return nil
}

// NewDriveService builds an authorized Drive client from the stored token,
// persisting it again when it was refreshed.
func NewDriveService(ctx context.Context, cfg Config, opts ...option.ClientOption) (*drive.Service, error) {
	oc, err := loadOAuthConfig(cfg)
	if err != nil {
		return nil, err
	}
	token, err := loadToken(cfg.DriveToken)
	if err != nil {
		return nil, err
	}

	ts := oc.TokenSource(ctx, token)
	fresh, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if fresh.AccessToken != token.AccessToken {
		_ = saveToken(cfg.DriveToken, fresh)
	}

	svc, err := drive.NewService(ctx, append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gdrive service: %w", err)
	}
	return svc, nil
}
