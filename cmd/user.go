package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/jon4hz/gradebook/internal/api/models"
	"github.com/jon4hz/gradebook/internal/config"
	"github.com/jon4hz/gradebook/internal/database"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var userCmdFlags struct {
	Username string
	Email    string
	Password string
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a user account",
	RunE: withUserDB(func(ctx context.Context, cfg *config.Config, db database.UserDB, out io.Writer) error {
		return addUser(ctx, db, cfg.Password, out, userCmdFlags.Username, userCmdFlags.Email, userCmdFlags.Password)
	}),
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all user accounts",
	RunE: withUserDB(func(ctx context.Context, _ *config.Config, db database.UserDB, out io.Writer) error {
		return listUsers(ctx, db, out)
	}),
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Set the password of a user account",
	RunE: withUserDB(func(ctx context.Context, cfg *config.Config, db database.UserDB, out io.Writer) error {
		return setUserPassword(ctx, db, cfg.Password, out, userCmdFlags.Username, userCmdFlags.Password)
	}),
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a user account with all of its courses and assessments",
	RunE: withUserDB(func(ctx context.Context, _ *config.Config, db database.UserDB, out io.Writer) error {
		return deleteUser(ctx, db, out, userCmdFlags.Username)
	}),
}

func init() {
	for _, c := range []*cobra.Command{userAddCmd, userPasswdCmd, userDeleteCmd} {
		c.Flags().StringVar(&userCmdFlags.Username, "username", "", "Username of the account")
		_ = c.MarkFlagRequired("username")
	}
	userAddCmd.Flags().StringVar(&userCmdFlags.Email, "email", "", "Email address of the account")
	_ = userAddCmd.MarkFlagRequired("email")
	for _, c := range []*cobra.Command{userAddCmd, userPasswdCmd} {
		c.Flags().StringVar(&userCmdFlags.Password, "password", "", "Password of the account")
		_ = c.MarkFlagRequired("password")
	}

	userCmd.AddCommand(userAddCmd, userListCmd, userPasswdCmd, userDeleteCmd)
	rootCmd.AddCommand(userCmd)
}

type userFunc func(ctx context.Context, cfg *config.Config, db database.UserDB, out io.Writer) error

func withUserDB(fn userFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer db.Close() //nolint: errcheck

		return fn(cmd.Context(), cfg, db, cmd.OutOrStdout())
	}
}

func addUser(ctx context.Context, db database.UserDB, policy *config.PasswordConfig, out io.Writer, username, email, password string) error {
	req := models.RegisterRequest{
		Username: username,
		Email:    strings.ToLower(email),
		Password: password,
	}
	if err := models.Validate(req); err != nil {
		return err
	}
	if err := models.CheckPassword(policy, password); err != nil {
		return err
	}
	user, err := db.CreateUser(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	fmt.Fprintf(out, "Created user %s (id %d)\n", user.Username, user.ID)
	return nil
}

func listUsers(ctx context.Context, db database.UserDB, out io.Writer) error {
	users, err := db.GetAllUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	if len(users) == 0 {
		fmt.Fprintln(out, "No users found.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tCREATED")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, humanize.Time(u.CreatedAt))
	}
	return tw.Flush()
}

func lookupUser(ctx context.Context, db database.UserDB, username string) (*database.User, error) {
	user, err := db.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %q not found", username)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func setUserPassword(ctx context.Context, db database.UserDB, policy *config.PasswordConfig, out io.Writer, username, password string) error {
	if err := models.CheckPassword(policy, password); err != nil {
		return err
	}
	user, err := lookupUser(ctx, db, username)
	if err != nil {
		return err
	}
	if err := db.UpdateUserPassword(ctx, user.ID, password); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	fmt.Fprintf(out, "Updated password of %s\n", user.Username)
	return nil
}

func deleteUser(ctx context.Context, db database.UserDB, out io.Writer, username string) error {
	user, err := lookupUser(ctx, db, username)
	if err != nil {
		return err
	}
	if err := db.DeleteUser(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	fmt.Fprintf(out, "Deleted user %s with all of their courses\n", user.Username)
	return nil
}
