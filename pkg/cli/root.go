package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/platinummonkey/tenancy/pkg/admins"
	"github.com/platinummonkey/tenancy/pkg/models"
)

// AdminService is the part of the admin service the CLI drives
type AdminService interface {
	SignupSuperAdmin(ctx context.Context, phoneNumber, password, confirm string) (*models.Admin, error)
	CreateFromCLI(ctx context.Context, req admins.CreateRequest) (*models.Admin, error)
	Merge(ctx context.Context, phoneNumber string, patch models.AdminPatch) (*models.Admin, error)
}

// Env is what the commands act on. Admins is opened lazily so that
// commands which never touch the database still work without one.
type Env struct {
	Admins  func(ctx context.Context) (AdminService, error)
	Migrate func(ctx context.Context) error
	Out     io.Writer
	Getenv  func(string) string
}

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(ctx context.Context, args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// NewRootCommand creates the root command
func NewRootCommand(env Env) *Command {
	if env.Out == nil {
		env.Out = os.Stdout
	}
	if env.Getenv == nil {
		env.Getenv = os.Getenv
	}

	root := &Command{
		Name:        "tenancy-admin",
		Description: "Tenancy administration",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("tenancy-admin", flag.ContinueOnError),
	}

	root.Subcommands["signup-superadmin"] = newSignupSuperAdminCommand(env)
	root.Subcommands["create-admin"] = newCreateAdminCommand(env)
	root.Subcommands["merge-admin"] = newMergeAdminCommand(env)
	root.Subcommands["migrate"] = newMigrateCommand(env)

	return root
}

// Execute runs the subcommand named by args[0]
func (c *Command) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		return c.usage(os.Stdout)
	}

	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(ctx, args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage(w io.Writer) error {
	fmt.Fprintf(w, "Usage: %s <command> [flags]\n\n", c.Name)
	fmt.Fprintf(w, "Commands:\n")
	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-18s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}
