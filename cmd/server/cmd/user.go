package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Togather-Foundation/conflicts/internal/auth"
	"github.com/Togather-Foundation/conflicts/internal/domain/users"
	"github.com/Togather-Foundation/conflicts/internal/storage"
	"github.com/Togather-Foundation/conflicts/internal/storage/schema"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type userOptions struct {
	username string
	password string
	role     string
}

func newUserCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
		Long: `Create accounts and rotate passwords without going through the API.

When --password is omitted the password is read from the first line of stdin:
  echo "$ADMIN_PASSWORD" | server user create --username ops --role admin`,
	}
	cmd.AddCommand(newUserCreateCommand(opts), newUserSetPasswordCommand(opts))
	return cmd
}

func newUserCreateCommand(opts *globalOptions) *cobra.Command {
	userOpts := &userOptions{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := passwordInput(cmd.InOrStdin(), userOpts.password)
			if err != nil {
				return err
			}
			return withUserService(cmd, opts, func(svc *users.Service) error {
				user, err := svc.Create(cmd.Context(), users.CreateParams{
					Username: userOpts.username,
					Password: password,
					Role:     userOpts.role,
				})
				if err != nil {
					return fmt.Errorf("create user: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %q (id=%d, role=%s)\n", user.Username, user.ID, user.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userOpts.username, "username", "", "account username (required)")
	cmd.Flags().StringVar(&userOpts.password, "password", "", "account password (read from stdin when empty)")
	cmd.Flags().StringVar(&userOpts.role, "role", string(auth.RoleUser), "account role (user or admin)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newUserSetPasswordCommand(opts *globalOptions) *cobra.Command {
	userOpts := &userOptions{}
	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Replace the password of an existing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := passwordInput(cmd.InOrStdin(), userOpts.password)
			if err != nil {
				return err
			}
			return withUserService(cmd, opts, func(svc *users.Service) error {
				err := svc.UpdatePassword(cmd.Context(), users.UpdatePasswordParams{
					Username: userOpts.username,
					Password: password,
				})
				if errors.Is(err, users.ErrUserNotFound) {
					return fmt.Errorf("user %q does not exist", userOpts.username)
				}
				if err != nil {
					return fmt.Errorf("set password: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "password updated for %q\n", userOpts.username)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userOpts.username, "username", "", "account username (required)")
	cmd.Flags().StringVar(&userOpts.password, "password", "", "new password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func passwordInput(in io.Reader, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required (use --password or stdin)")
	}
	return password, nil
}

// withUserService migrates the store first so accounts can be created on a
// fresh database.
func withUserService(cmd *cobra.Command, opts *globalOptions, fn func(*users.Service) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return withDatabase(cmd.Context(), opts, func(db storage.Adapter, logger zerolog.Logger) error {
		if err := schema.MigrateUp(db, logger); err != nil {
			return err
		}
		hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
		svc := users.NewService(users.NewRepository(db), hasher, nil, logger)
		return fn(svc)
	})
}
