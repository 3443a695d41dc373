package cli

import (
	"flag"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/mlukasik/shelfkeeper/internal/auth"
	"github.com/mlukasik/shelfkeeper/internal/config"
	"github.com/mlukasik/shelfkeeper/internal/database"
)

// CreateAdminCommand creates a staff account from the command line. The
// web registration form only creates plain members, so this is how the
// first librarian account comes to exist.
type CreateAdminCommand struct {
	Username     string
	Email        string
	Password     string
	DatabasePath string
}

func NewCreateAdminCommand() *CreateAdminCommand {
	return &CreateAdminCommand{}
}

func (cmd *CreateAdminCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)

	fs.StringVar(&cmd.Username, "username", "", "Username for the staff account (required)")
	fs.StringVar(&cmd.Email, "email", "", "Email for the staff account (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password (omit to be prompted without echo)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the SQLite database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-admin -username <name> -email <addr> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create a staff account with catalog management access.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Username == "" {
		return fmt.Errorf("required flag -username not provided")
	}
	if cmd.Email == "" {
		return fmt.Errorf("required flag -email not provided")
	}

	return nil
}

func (cmd *CreateAdminCommand) Run() error {
	if cmd.Password == "" {
		fmt.Print("Password: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		cmd.Password = string(raw)
	}

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	cfg := config.NewConfig()
	service := auth.NewService(db.DB, cfg.Auth)

	user, err := service.CreateUser(cmd.Username, cmd.Email, cmd.Password, true)
	if err != nil {
		return fmt.Errorf("failed to create staff account: %w", err)
	}

	fmt.Printf("Created staff account %q (id=%d)\n", user.Username, user.ID)
	return nil
}
