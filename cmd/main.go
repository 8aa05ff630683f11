package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"linotpadm/cmd/admin"
	"linotpadm/cmd/version"
	"linotpadm/internal/schema"
)

var rootCmd = &cobra.Command{
	Use:   "linotpadm",
	Short: "linotpadm - administer tokens, users, realms and resolvers of a LinOTP server",
	Long: `linotpadm runs one administrative command against the LinOTP management API.

The command and its parameters come from flags, from an automation file given
with --automate, or both. Flags override values from the automation file.

Examples:
  linotpadm -U https://otp.example.com -a admin -C listtoken --user=alice
  linotpadm -U https://otp.example.com -a admin -C setresolver --resolver=corp --rtype=LDAP ...
  linotpadm --automate=nightly.ini --csv`,
	Version:       version.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return schema.NewParameterError(schema.ErrUnexpectedParameter, "", "unexpected argument %q, use --command", args[0])
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return admin.Run(cmd.Context(), admin.FlagValues(cmd.Flags()), admin.Deps{Stdout: cmd.OutOrStdout()})
	},
}

func init() {
	admin.RegisterFlags(rootCmd.Flags())
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return admin.FlagError(err)
	})

	rootCmd.AddCommand(version.NewVersionCommand())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(admin.ExitCode(err))
	}
}
