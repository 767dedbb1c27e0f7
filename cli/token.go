package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/spf13/cobra"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	Secret   string
	Audience string
	Issuer   string
	TTL      time.Duration
	Output   string
}

type tokenResult struct {
	Token     string    `json:"token"`
	Subject   string    `json:"sub"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Sign a bearer token for an API running with LOCAL_AUTH_MODE=hs256",
		Long: `Sign a bearer token for an API running with LOCAL_AUTH_MODE=hs256.

Example:
  export KANBAN_TOKEN=$(kanban-cli token dev-user --secret "$LOCAL_AUTH_SHARED_SECRET")`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Secret == "" {
				return NewExitError(ExitCommandError, "--secret or LOCAL_AUTH_SHARED_SECRET is required")
			}
			if opts.TTL <= 0 {
				return NewExitError(ExitCommandError, "--ttl must be greater than zero")
			}
			res, err := signToken(args[0], opts, time.Now())
			if err != nil {
				return err
			}
			if opts.Output != "" {
				if err := writeToken(opts.Output, res.Token); err != nil {
					return fmt.Errorf("write token: %w", err)
				}
			}
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(res, res.Token+"\n")
		},
	}

	cmd.Flags().StringVar(&opts.Secret, "secret", os.Getenv("LOCAL_AUTH_SHARED_SECRET"), "HS256 shared secret")
	cmd.Flags().StringVar(&opts.Audience, "audience", os.Getenv("AUTH0_AUDIENCE"), "aud claim")
	cmd.Flags().StringVar(&opts.Issuer, "issuer", "", "iss claim")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", time.Hour, "token lifetime")
	cmd.Flags().StringVar(&opts.Output, "output", "", "also write the token to this file")

	return cmd
}

func signToken(sub string, opts *TokenOptions, now time.Time) (tokenResult, error) {
	exp := now.Add(opts.TTL)
	claims := jwt.MapClaims{
		"sub": sub,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}
	if opts.Audience != "" {
		claims["aud"] = opts.Audience
	}
	if opts.Issuer != "" {
		claims["iss"] = opts.Issuer
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(opts.Secret))
	if err != nil {
		return tokenResult{}, err
	}
	return tokenResult{Token: signed, Subject: sub, ExpiresAt: time.Unix(exp.Unix(), 0).UTC()}, nil
}

func writeToken(path, token string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(token+"\n"), 0o600)
}
