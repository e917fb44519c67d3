package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"wikit-semantics/internal/model"
	"wikit-semantics/internal/service"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the Semantics API configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configuration with the API key masked",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(configPath)
		if err != nil {
			return err
		}
		cfg, err := a.svc.Configs.Get(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(service.Masked(cfg))
	},
}

var configSet struct {
	urlAPI         string
	organizationID string
	appID          string
	apiKey         string
	streaming      bool
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update configuration fields, only the given flags are changed",
	Example: `  semantics config set --url-api https://semantics.example.com --app-id app-1 --api-key sk-...
  semantics config set --streaming=false`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(configPath)
		if err != nil {
			return err
		}

		var in service.ConfigInput
		flags := cmd.Flags()
		if flags.Changed("url-api") {
			in.URLAPI = &configSet.urlAPI
		}
		if flags.Changed("organization-id") {
			in.OrganizationID = &configSet.organizationID
		}
		if flags.Changed("app-id") {
			in.AppID = &configSet.appID
		}
		if flags.Changed("api-key") {
			in.APIKey = &configSet.apiKey
		}
		if flags.Changed("streaming") {
			in.IsStreamingEnabled = &configSet.streaming
		}

		if err := a.svc.Configs.Save(cmd.Context(), 0, in); err != nil {
			return err
		}
		fmt.Println("saved")
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Send a test question to the Semantics API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(configPath)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Upstream.Timeout+a.cfg.Upstream.ConnectTimeout)
		defer cancel()

		start := time.Now()
		if err := a.svc.Semantics.TestConnection(ctx); err != nil {
			return fmt.Errorf("connection failed: %w", err)
		}
		fmt.Printf("Connection successful (%s)\n", time.Since(start).Round(time.Millisecond))
		return nil
	},
}

var rightsGrant struct {
	profileID uint
	user      string
	entityID  uint
	readAll   bool
}

var rightsCmd = &cobra.Command{
	Use:   "rights",
	Short: "Manage plugin rights",
}

var rightsGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Give a profile every plugin right, optionally creating a user in it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := openApp(configPath)
		if err != nil {
			return err
		}
		profiles := a.svc.Profiles

		if err := profiles.CreateFirstAccess(ctx, rightsGrant.profileID); err != nil {
			return err
		}
		if rightsGrant.readAll {
			if err := profiles.Grant(ctx, rightsGrant.profileID, model.RightNameTicket, model.RightRead|model.RightReadAll); err != nil {
				return err
			}
		}
		if rightsGrant.user != "" {
			user, err := profiles.EnsureUser(ctx, rightsGrant.user, rightsGrant.profileID, rightsGrant.entityID)
			if err != nil {
				return err
			}
			fmt.Printf("user %s (id %d) in profile %d\n", user.Name, user.ID, user.ProfileID)
		}

		rights, err := profiles.Rights(ctx, rightsGrant.profileID)
		if err != nil {
			return err
		}
		return printJSON(rights)
	},
}

var ticketAdd struct {
	name        string
	content     string
	entityID    uint
	requesterID uint
}

var ticketCmd = &cobra.Command{
	Use:   "ticket",
	Short: "Manage development tickets",
}

var ticketAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a ticket",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(configPath)
		if err != nil {
			return err
		}
		ticket := &model.Ticket{
			Name:        ticketAdd.name,
			Content:     ticketAdd.content,
			EntityID:    ticketAdd.entityID,
			RequesterID: ticketAdd.requesterID,
		}
		if err := a.svc.Tickets.Create(cmd.Context(), ticket); err != nil {
			return err
		}
		fmt.Printf("ticket %d created\n", ticket.ID)
		return nil
	},
}

func init() {
	f := configSetCmd.Flags()
	f.StringVar(&configSet.urlAPI, "url-api", "", "Semantics API base URL")
	f.StringVar(&configSet.organizationID, "organization-id", "", "Organization ID")
	f.StringVar(&configSet.appID, "app-id", "", "Application ID")
	f.StringVar(&configSet.apiKey, "api-key", "", "API key, stored encrypted")
	f.BoolVar(&configSet.streaming, "streaming", false, "Enable streaming answers")
	configCmd.AddCommand(configShowCmd, configSetCmd)

	f = rightsGrantCmd.Flags()
	f.UintVar(&rightsGrant.profileID, "profile", 0, "Profile ID")
	f.StringVar(&rightsGrant.user, "user", "", "Create or move this login name into the profile")
	f.UintVar(&rightsGrant.entityID, "entity", 0, "Entity of the created user")
	f.BoolVar(&rightsGrant.readAll, "read-all-tickets", false, "Also grant reading every ticket of the entity")
	_ = rightsGrantCmd.MarkFlagRequired("profile")
	rightsCmd.AddCommand(rightsGrantCmd)

	f = ticketAddCmd.Flags()
	f.StringVar(&ticketAdd.name, "name", "", "Ticket title")
	f.StringVar(&ticketAdd.content, "content", "", "Ticket description (HTML)")
	f.UintVar(&ticketAdd.entityID, "entity", 0, "Entity ID")
	f.UintVar(&ticketAdd.requesterID, "requester", 0, "Requester user ID")
	_ = ticketAddCmd.MarkFlagRequired("name")
	ticketCmd.AddCommand(ticketAddCmd)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
