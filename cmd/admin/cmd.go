package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"achievement-service/internal/user"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type userStore interface {
	Create(ctx context.Context, u *user.User) error
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	Update(ctx context.Context, u *user.User, columns ...string) error
}

type tokenPurger interface {
	DeleteExpiredTokens(ctx context.Context) error
}

type commandLine struct {
	users  userStore
	tokens tokenPurger
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser -email EMAIL -name NAME -role faculty|admin|student -department DEPT - create an account, password prompted")
	fmt.Fprintln(cli.out, "  setactive -email EMAIL -active=true|false - activate or deactivate an account")
	fmt.Fprintln(cli.out, "  purgetokens - delete expired refresh tokens")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The account email.")
	addUserName := addUserCmd.String("name", "", "Display name.")
	addUserRole := addUserCmd.String("role", string(user.RoleFaculty), "One of student, faculty, admin.")
	addUserDept := addUserCmd.String("department", string(user.DeptOther), "Department code.")

	setActiveCmd := flag.NewFlagSet("setactive", flag.ContinueOnError)
	setActiveEmail := setActiveCmd.String("email", "", "The account email.")
	setActiveValue := setActiveCmd.Bool("active", true, "Whether the account may log in.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		role := user.Role(*addUserRole)
		if *addUserEmail == "" || *addUserName == "" || !role.Valid() {
			addUserCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) < 6 {
			return errors.New("password must be at least 6 characters")
		}
		return cli.addUser(ctx, *addUserEmail, *addUserName, role, user.Department(*addUserDept), pwd)
	case "setactive":
		if err := setActiveCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setActiveEmail == "" {
			setActiveCmd.Usage()
			return errHelp
		}
		return cli.setActive(ctx, *setActiveEmail, *setActiveValue)
	case "purgetokens":
		if err := cli.tokens.DeleteExpiredTokens(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "expired refresh tokens deleted")
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) addUser(ctx context.Context, email, name string, role user.Role, dept user.Department, password []byte) error {
	hash, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u := &user.User{
		Name:         name,
		Email:        user.NormalizeEmail(email),
		PasswordHash: string(hash),
		Role:         role,
		Department:   dept,
		IsActive:     true,
	}
	if err := cli.users.Create(ctx, u); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created %s %s (id %d)\n", u.Role, u.Email, u.ID)
	return nil
}

func (cli *commandLine) setActive(ctx context.Context, email string, active bool) error {
	u, err := cli.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	u.IsActive = active
	if err := cli.users.Update(ctx, u, "is_active"); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s active=%t\n", u.Email, u.IsActive)
	return nil
}
