package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/promptdeck/promptdeck/internal/analytics"
	"github.com/promptdeck/promptdeck/internal/config"
	"github.com/promptdeck/promptdeck/internal/db"
	"github.com/promptdeck/promptdeck/internal/ledger"
	"github.com/promptdeck/promptdeck/internal/models"
	"github.com/promptdeck/promptdeck/internal/notify"
	"github.com/promptdeck/promptdeck/internal/service"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML document consumed by the seed command.
type seedFile struct {
	Templates []seedTemplate `yaml:"templates"`
}

type seedTemplate struct {
	Title       string                 `yaml:"title"`
	Description string                 `yaml:"description"`
	Config      map[string]interface{} `yaml:"config"`
	Tags        []string               `yaml:"tags"`
	Public      bool                   `yaml:"public"`
	Publish     bool                   `yaml:"publish"`
}

var seedOwner string

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Import templates from a YAML file",
	Long:  `Import templates from a YAML file, creating them under the given owner account.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read seed file: %w", err)
		}

		var file seedFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("failed to parse seed file: %w", err)
		}
		if len(file.Templates) == 0 {
			return fmt.Errorf("seed file contains no templates")
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		database, err := db.New(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Migrate(database); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}

		var owner models.User
		if err := database.Where("username = ?", seedOwner).First(&owner).Error; err != nil {
			return fmt.Errorf("owner account %q not found", seedOwner)
		}

		svc := service.New(database, ledger.New(database), analytics.NewStoreRecorder(database), notify.NewBroker())
		ctx := context.Background()

		for _, entry := range file.Templates {
			configJSON, err := json.Marshal(entry.Config)
			if err != nil {
				return fmt.Errorf("template %q: invalid config: %w", entry.Title, err)
			}

			tpl, err := svc.Create(ctx, owner.ID, service.CreateRequest{
				Title:       entry.Title,
				Description: entry.Description,
				Config:      configJSON,
				Tags:        entry.Tags,
				IsPublic:    entry.Public,
			})
			if err != nil {
				return fmt.Errorf("template %q: %w", entry.Title, err)
			}

			if entry.Publish {
				if _, err := svc.Publish(ctx, owner.ID, tpl.ID); err != nil {
					return fmt.Errorf("template %q: publish failed: %w", entry.Title, err)
				}
			}

			fmt.Printf("Created template %s (%s)\n", tpl.Title, tpl.ID)
		}

		fmt.Printf("Seeded %d templates\n", len(file.Templates))
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedOwner, "owner", "admin", "Username that owns the seeded templates")
}
