package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/wastelog/internal/waste"
)

// PayloadOptions holds the flags shared by create and update.
type PayloadOptions struct {
	*RootOptions
	WasteType string
	Quantity  float64
	Recycled  float64
	Location  string
}

func (o *PayloadOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.WasteType, "type", "t", "", "waste type, e.g. plastic")
	cmd.Flags().Float64VarP(&o.Quantity, "quantity", "q", 0, "outstanding quantity")
	cmd.Flags().StringVarP(&o.Location, "location", "l", "", "where the waste was recorded")
	cmd.Flags().Float64Var(&o.Recycled, "recycled", 0, "recycled quantity")
	_ = cmd.MarkFlagRequired("quantity")
}

// payload builds the request payload. Quantity and recycled are only set
// when their flags were given, so a missing --recycled keeps the stored value.
func (o *PayloadOptions) payload(cmd *cobra.Command) waste.Payload {
	p := waste.Payload{
		WasteType: o.WasteType,
		Location:  o.Location,
	}
	if cmd.Flags().Changed("quantity") {
		p.Quantity = waste.Some(o.Quantity)
	}
	if cmd.Flags().Changed("recycled") {
		p.RecycledQuantity = waste.Some(o.Recycled)
	}
	return p
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PayloadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a new waste entry",
		Long: `Record a new, unverified waste entry owned by the caller.

Example:
  wastelog create --type plastic --quantity 100 --location siteA
  wastelog create -t glass -q 12.5 -l depot --as alice --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(opts.RootOptions, cmd, func(s *session) (any, error) {
				return s.svc.Create(cmd.Context(), opts.payload(cmd))
			})
		},
	}
	opts.bind(cmd)
	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PayloadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace the descriptive fields of an entry",
		Long: `Replace waste type, quantity and location of an entry.

Id, owner, creation time and verification are kept. The recycled
quantity only changes when --recycled is given.

Example:
  wastelog update 0190... --type plastic --quantity 80 --location siteB`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(opts.RootOptions, cmd, func(s *session) (any, error) {
				return s.svc.Update(cmd.Context(), args[0], opts.payload(cmd))
			})
		},
	}
	opts.bind(cmd)
	return cmd
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <id>",
		Short:         "Show one entry",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(rootOpts, cmd, func(s *session) (any, error) {
				return s.svc.Get(cmd.Context(), args[0])
			})
		},
	}
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Verified bool
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries",
		Long: `List every stored entry, or only verified ones with --verified.

Example:
  wastelog list
  wastelog list --verified --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(opts.RootOptions, cmd, func(s *session) (any, error) {
				var (
					entries []waste.Entry
					err     error
				)
				if opts.Verified {
					entries, err = s.svc.ListVerified(cmd.Context())
				} else {
					entries, err = s.svc.ListAll(cmd.Context())
				}
				if entries == nil {
					entries = []waste.Entry{}
				}
				return entries, err
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Verified, "verified", false, "only verified entries")
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete an entry and print it",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(rootOpts, cmd, func(s *session) (any, error) {
				return s.svc.Delete(cmd.Context(), args[0])
			})
		},
	}
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "verify <id>",
		Short:         "Mark an entry as verified",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(rootOpts, cmd, func(s *session) (any, error) {
				return s.svc.Verify(cmd.Context(), args[0])
			})
		},
	}
}

// NewRecycleCommand creates the recycle command.
func NewRecycleCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recycle <id> <amount>",
		Short: "Move an amount from outstanding to recycled",
		Long: `Move amount from the entry's outstanding quantity into its recycled
quantity. Recycling more than is outstanding fails and changes nothing.

Example:
  wastelog recycle 0190... 40`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return rootOpts.formatter(cmd).Fail(
					NewExitError(ExitCommandError, fmt.Sprintf("invalid amount %q: must be a number", args[1])))
			}
			return runOperation(rootOpts, cmd, func(s *session) (any, error) {
				return s.svc.Recycle(cmd.Context(), args[0], amount)
			})
		},
	}
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stats",
		Short:         "Show totals across all entries",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(rootOpts, cmd, func(s *session) (any, error) {
				return s.svc.Stats(cmd.Context())
			})
		},
	}
}

// runOperation opens a session, runs op and prints its result.
func runOperation(o *RootOptions, cmd *cobra.Command, op func(*session) (any, error)) error {
	out := o.formatter(cmd)

	s, err := o.openSession(cmd, oneShot)
	if err != nil {
		return out.Fail(err)
	}
	defer s.Close()

	result, err := op(s)
	if err != nil {
		return out.Fail(err)
	}
	return out.Success(result)
}
