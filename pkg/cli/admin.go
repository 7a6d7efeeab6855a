package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/platinummonkey/tenancy/pkg/admins"
	"github.com/platinummonkey/tenancy/pkg/models"
)

// PasswordEnv is read when --password is not given, keeping the secret out
// of the shell history
const PasswordEnv = "TENANCY_ADMIN_PASSWORD"

var errPhoneRequired = errors.New("--phone is required")

func newSignupSuperAdminCommand(env Env) *Command {
	cmd := &Command{
		Name:        "signup-superadmin",
		Description: "Create the SuperAdmin; fails when one exists",
		Flags:       flag.NewFlagSet("signup-superadmin", flag.ContinueOnError),
	}
	phone := cmd.Flags.String("phone", "", "Phone number used to sign in")
	password := cmd.Flags.String("password", "", "Password (default $"+PasswordEnv+")")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *phone == "" {
			return errPhoneRequired
		}
		pw := passwordOrEnv(env, *password)

		svc, err := env.Admins(ctx)
		if err != nil {
			return err
		}
		admin, err := svc.SignupSuperAdmin(ctx, *phone, pw, pw)
		if err != nil {
			return err
		}
		printAdmin(env.Out, "created", admin)
		return nil
	}
	return cmd
}

func newCreateAdminCommand(env Env) *Command {
	cmd := &Command{
		Name:        "create-admin",
		Description: "Create an administrator",
		Flags:       flag.NewFlagSet("create-admin", flag.ContinueOnError),
	}
	phone := cmd.Flags.String("phone", "", "Phone number used to sign in")
	password := cmd.Flags.String("password", "", "Password (default $"+PasswordEnv+")")
	role := cmd.Flags.String("role", string(models.AdminRoleAdmin), "Admin or SuperAdmin")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *phone == "" {
			return errPhoneRequired
		}
		parsed, err := models.ParseAdminRole(*role)
		if err != nil {
			return err
		}
		pw := passwordOrEnv(env, *password)

		svc, err := env.Admins(ctx)
		if err != nil {
			return err
		}
		admin, err := svc.CreateFromCLI(ctx, admins.CreateRequest{
			PhoneNumber:     *phone,
			Password:        pw,
			ConfirmPassword: pw,
			Role:            parsed,
		})
		if err != nil {
			return err
		}
		printAdmin(env.Out, "created", admin)
		return nil
	}
	return cmd
}

// newMergeAdminCommand updates the admin currently holding --phone
func newMergeAdminCommand(env Env) *Command {
	cmd := &Command{
		Name:        "merge-admin",
		Description: "Change an administrator's phone number or role",
		Flags:       flag.NewFlagSet("merge-admin", flag.ContinueOnError),
	}
	phone := cmd.Flags.String("phone", "", "Current phone number of the admin")
	newPhone := cmd.Flags.String("new-phone", "", "New phone number")
	role := cmd.Flags.String("role", "", "New role")

	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *phone == "" {
			return errPhoneRequired
		}

		var patch models.AdminPatch
		if *newPhone != "" {
			patch.PhoneNumber = newPhone
		}
		if *role != "" {
			parsed, err := models.ParseAdminRole(*role)
			if err != nil {
				return err
			}
			patch.Role = &parsed
		}
		if patch.PhoneNumber == nil && patch.Role == nil {
			return errors.New("nothing to change: pass --new-phone or --role")
		}

		svc, err := env.Admins(ctx)
		if err != nil {
			return err
		}
		admin, err := svc.Merge(ctx, *phone, patch)
		if err != nil {
			return err
		}
		printAdmin(env.Out, "updated", admin)
		return nil
	}
	return cmd
}

func newMigrateCommand(env Env) *Command {
	cmd := &Command{
		Name:        "migrate",
		Description: "Create or update the database schema",
		Flags:       flag.NewFlagSet("migrate", flag.ContinueOnError),
	}
	cmd.Run = func(ctx context.Context, args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if err := env.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(env.Out, "schema is up to date")
		return nil
	}
	return cmd
}

func passwordOrEnv(env Env, password string) string {
	if password != "" {
		return password
	}
	return strings.TrimSpace(env.Getenv(PasswordEnv))
}

func printAdmin(w io.Writer, verb string, admin *models.Admin) {
	fmt.Fprintf(w, "%s %s %s (%s)\n", verb, admin.Role, admin.PhoneNumber, admin.ID)
}
