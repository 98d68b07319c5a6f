// adminctl is the operator CLI for account maintenance: creating db-mode
// users, resetting lockouts, reactivating accounts and setting passwords.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/chestkeeper/chestkeeper/internal/logging"
	"github.com/chestkeeper/chestkeeper/internal/server/models"
	"github.com/chestkeeper/chestkeeper/internal/server/repositories/repomanager"
	"github.com/chestkeeper/chestkeeper/internal/server/services"
)

const usage = `Usage: adminctl <command> [flags]

Commands:
  create-user   create a db-mode account with a generated temporary password
  set-password  set a new password for an account (prompted, no echo)
  unblock       clear a temporary lockout
  reactivate    restore a deactivated account to Active
`

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("missing command")
	}

	_ = godotenv.Load()

	ctx := context.Background()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	switch args[0] {
	case "create-user":
		return runCreateUser(ctx, args[1:], logger)
	case "set-password":
		return runSetPassword(ctx, args[1:], logger)
	case "unblock":
		return runUnblock(ctx, args[1:], logger)
	case "reactivate":
		return runReactivate(ctx, args[1:], logger)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func openDB(fs *flag.FlagSet) (*sql.DB, error) {
	dsn := fs.Lookup("d").Value.String()
	if dsn == "" {
		return nil, errors.New("database DSN required (-d flag or DATABASE_DSN)")
	}
	return sql.Open("pgx", dsn)
}

func dsnFlag(fs *flag.FlagSet) {
	fs.String("d", os.Getenv("DATABASE_DSN"), "database DSN")
}

func runCreateUser(ctx context.Context, args []string, logger logging.Logger) error {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)
	dsnFlag(fs)
	login := fs.String("l", "", "login (required)")
	email := fs.String("e", "", "email")
	firstName := fs.String("f", "", "first name")
	lastName := fs.String("s", "", "last name")
	role := fs.String("r", models.RoleUser, "role")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *login == "" {
		return errors.New("login required (-l)")
	}

	db, err := openDB(fs)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := services.NewUserService(db, repomanager.NewPostgresRepositoryManager(), logger)
	user, password, err := svc.CreateUser(ctx, services.CreateUserParams{
		Login:     *login,
		Email:     *email,
		FirstName: *firstName,
		LastName:  *lastName,
		Role:      *role,
	})
	if err != nil {
		return err
	}

	fmt.Printf("user %s created (id %s)\n", user.Login, user.ID)
	fmt.Printf("temporary password: %s\n", password)
	return nil
}

func runSetPassword(ctx context.Context, args []string, logger logging.Logger) error {
	fs := flag.NewFlagSet("set-password", flag.ExitOnError)
	dsnFlag(fs)
	login := fs.String("l", "", "login (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *login == "" {
		return errors.New("login required (-l)")
	}

	fmt.Fprint(os.Stderr, "New password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	if len(pw) == 0 {
		return errors.New("empty password")
	}

	db, err := openDB(fs)
	if err != nil {
		return err
	}
	defer db.Close()

	repos := repomanager.NewPostgresRepositoryManager()
	user, err := repos.Users(db).GetByLogin(ctx, models.NormalizeLogin(*login))
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword(pw, bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	hashStr := string(hash)
	user.PasswordHash = &hashStr

	if err := repos.Users(db).Update(ctx, user); err != nil {
		return err
	}

	fmt.Printf("password updated for %s\n", user.Login)
	return nil
}

func runUnblock(ctx context.Context, args []string, logger logging.Logger) error {
	fs := flag.NewFlagSet("unblock", flag.ExitOnError)
	dsnFlag(fs)
	login := fs.String("l", "", "login (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *login == "" {
		return errors.New("login required (-l)")
	}

	db, err := openDB(fs)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := services.NewUserService(db, repomanager.NewPostgresRepositoryManager(), logger)
	if err := svc.Unblock(ctx, *login); err != nil {
		return err
	}

	fmt.Printf("user %s unblocked\n", models.NormalizeLogin(*login))
	return nil
}

func runReactivate(ctx context.Context, args []string, logger logging.Logger) error {
	fs := flag.NewFlagSet("reactivate", flag.ExitOnError)
	dsnFlag(fs)
	login := fs.String("l", "", "login (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *login == "" {
		return errors.New("login required (-l)")
	}

	db, err := openDB(fs)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := services.NewUserService(db, repomanager.NewPostgresRepositoryManager(), logger)
	if err := svc.Reactivate(ctx, *login); err != nil {
		return err
	}

	fmt.Printf("user %s reactivated\n", models.NormalizeLogin(*login))
	return nil
}
