package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sweeney/panic-alarm/internal/auth"
)

func userCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the users allowed to disarm",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "user database path (default from config)")

	openStore := func() (*auth.Store, error) {
		if dbPath == "" {
			cfg, err := loadConfig()
			if err != nil {
				return nil, err
			}
			dbPath = cfg.DBPath
		}
		return auth.Open(dbPath)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <email>",
			Short: "Create a user; the password is read from stdin",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := openStore()
				if err != nil {
					return err
				}
				defer store.Close()
				return addUser(cmd.Context(), store, args[0], cmd.InOrStdin(), cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "login <email>",
			Short: "Make a user the current session; the password is read from stdin",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := openStore()
				if err != nil {
					return err
				}
				defer store.Close()
				return loginUser(cmd.Context(), store, args[0], cmd.InOrStdin(), cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "logout",
			Short: "End the current session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := openStore()
				if err != nil {
					return err
				}
				defer store.Close()
				return store.Logout(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "current",
			Short: "Print the current user",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := openStore()
				if err != nil {
					return err
				}
				defer store.Close()
				return printCurrent(cmd.Context(), store, cmd.OutOrStdout())
			},
		},
	)
	return cmd
}

func addUser(ctx context.Context, store *auth.Store, email string, in io.Reader, out io.Writer) error {
	password, err := readPassword(in, out)
	if err != nil {
		return err
	}
	u, err := store.CreateUser(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created %s (%s)\n", u.Email, u.ID)
	return nil
}

func loginUser(ctx context.Context, store *auth.Store, email string, in io.Reader, out io.Writer) error {
	password, err := readPassword(in, out)
	if err != nil {
		return err
	}
	if err := store.Login(ctx, email, password); err != nil {
		return err
	}
	fmt.Fprintf(out, "logged in as %s\n", strings.ToLower(strings.TrimSpace(email)))
	return nil
}

func printCurrent(ctx context.Context, store *auth.Store, out io.Writer) error {
	email, err := store.CurrentEmail(ctx)
	if errors.Is(err, auth.ErrNoSession) {
		fmt.Fprintln(out, "nobody is logged in")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, email)
	return nil
}

// readPassword reads the password without echo when in is a terminal, and
// one line otherwise.
func readPassword(in io.Reader, out io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, "password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return checkPassword(string(b))
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return checkPassword(strings.TrimRight(line, "\r\n"))
}

func checkPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	return password, nil
}
