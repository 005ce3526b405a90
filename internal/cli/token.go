package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/wastelog/internal/identity"
	"github.com/roach88/wastelog/internal/waste"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	TTL time.Duration
}

// TokenResult is the token command's output.
type TokenResult struct {
	Identity  waste.Identity `json:"identity"`
	Token     string         `json:"token"`
	ExpiresIn string         `json:"expiresIn"`
}

func (r TokenResult) String() string {
	return r.Token
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token <identity>",
		Short: "Issue a bearer token for the HTTP API",
		Long: `Issue an HS256 bearer token signed with http.jwt_secret.

Example:
  wastelog token alice --ttl 1h
  curl -H "Authorization: Bearer $(wastelog token alice)" localhost:8080/api/waste-entries`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return issueToken(opts, waste.Identity(args[0]), cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.TTL, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}

func issueToken(opts *TokenOptions, id waste.Identity, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return out.Fail(err)
	}
	if cfg.HTTP.JWTSecret == "" {
		return out.Fail(NewExitError(ExitCommandError, "http.jwt_secret is not configured"))
	}
	if opts.TTL <= 0 {
		return out.Fail(NewExitError(ExitCommandError, "--ttl must be positive"))
	}

	token, err := identity.NewIssuer(cfg.HTTP.JWTSecret, opts.TTL).Issue(id)
	if err != nil {
		return out.Fail(NewExitError(ExitCommandError, err.Error()))
	}
	return out.Success(TokenResult{Identity: id, Token: token, ExpiresIn: opts.TTL.String()})
}
