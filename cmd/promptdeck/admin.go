package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/promptdeck/promptdeck/internal/config"
	"github.com/promptdeck/promptdeck/internal/db"
	"github.com/promptdeck/promptdeck/internal/models"
	"github.com/promptdeck/promptdeck/internal/rbac"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin role assignments",
}

var adminGrantCmd = &cobra.Command{
	Use:   "grant <username>",
	Short: "Grant the admin role to a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := adminLookupUser(args[0])
		if err != nil {
			return err
		}
		if err := rbac.MakeAdmin(user.ID); err != nil {
			return fmt.Errorf("failed to grant admin role: %w", err)
		}
		fmt.Printf("Granted admin role to %s\n", user.Username)
		return nil
	},
}

var adminRevokeCmd = &cobra.Command{
	Use:   "revoke <username>",
	Short: "Revoke the admin role from a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := adminLookupUser(args[0])
		if err != nil {
			return err
		}
		if err := rbac.RevokeAdmin(user.ID); err != nil {
			return fmt.Errorf("failed to revoke admin role: %w", err)
		}
		fmt.Printf("Revoked admin role from %s\n", user.Username)
		return nil
	},
}

// adminLookupUser connects to the configured database, initializes the
// enforcer, and resolves the username.
func adminLookupUser(username string) (*models.User, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	database, err := db.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := rbac.InitEnforcer(database, slog.Default()); err != nil {
		return nil, fmt.Errorf("failed to initialize RBAC: %w", err)
	}

	var user models.User
	if err := database.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %q not found", username)
		}
		return nil, err
	}
	return &user, nil
}

func init() {
	adminCmd.AddCommand(adminGrantCmd)
	adminCmd.AddCommand(adminRevokeCmd)
}
