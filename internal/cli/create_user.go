package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/elibrary/internal/apperr"
	"github.com/mrlokans/elibrary/internal/config"
	"github.com/mrlokans/elibrary/internal/entrypoint"
	"github.com/mrlokans/elibrary/internal/library"
)

// CreateUserCommand opens an account from the command line, for example a
// second administrator or a reader imported from another system.
type CreateUserCommand struct {
	DatabasePath string
	Username     string
	Email        string
	FullName     string
	Password     string
	Admin        bool

	config *config.Config
}

func NewCreateUserCommand(cfg *config.Config) *CreateUserCommand {
	return &CreateUserCommand{config: cfg}
}

func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)

	fs.StringVar(&cmd.DatabasePath, "db", cmd.config.Database.Path, "Path to the SQLite database (ignored when DATABASE_URL is set)")
	fs.StringVar(&cmd.Username, "username", "", "Login name, 4-20 characters (required)")
	fs.StringVar(&cmd.Email, "email", "", "Email address (required)")
	fs.StringVar(&cmd.FullName, "name", "", "Full name (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password, at least 6 characters (default: $ELIBRARY_PASSWORD)")
	fs.BoolVar(&cmd.Admin, "admin", false, "Grant administrator rights")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user -username <name> -email <email> -name <full name> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create a user account directly in the database.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  ELIBRARY_PASSWORD=secret %s create-user -username alice -email alice@example.com -name \"Alice Liddell\"\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Password == "" {
		cmd.Password = os.Getenv("ELIBRARY_PASSWORD")
	}
	switch {
	case cmd.Username == "":
		return fmt.Errorf("required flag -username not provided")
	case cmd.Email == "":
		return fmt.Errorf("required flag -email not provided")
	case cmd.FullName == "":
		return fmt.Errorf("required flag -name not provided")
	case cmd.Password == "":
		return fmt.Errorf("no password: use -password or set ELIBRARY_PASSWORD")
	}
	return nil
}

func (cmd *CreateUserCommand) Run() error {
	ctx := context.Background()
	cmd.config.Database.Path = cmd.DatabasePath

	app, err := entrypoint.Open(ctx, cmd.config)
	if err != nil {
		return err
	}
	defer app.Close()

	user, err := app.Library.CreateUser(ctx, library.SystemPrincipal, library.UserInput{
		Username:        cmd.Username,
		Email:           cmd.Email,
		FullName:        cmd.FullName,
		Password:        cmd.Password,
		PasswordConfirm: cmd.Password,
		IsAdmin:         cmd.Admin,
	})
	if err != nil {
		if verr := apperr.AsValidation(err); verr != nil {
			for field, msg := range verr.Fields {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", field, msg)
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	role := "reader"
	if user.IsAdmin {
		role = "admin"
	}
	fmt.Printf("Created %s %q (id %d)\n", role, user.Username, user.ID)
	return nil
}
