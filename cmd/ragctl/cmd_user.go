package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"lexora.io/legal-assistant/internal/app"
	"lexora.io/legal-assistant/internal/auth"
	"lexora.io/legal-assistant/internal/config"
	"lexora.io/legal-assistant/internal/store"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts and issue API tokens",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		roleName, _ := cmd.Flags().GetString("role")

		role, err := store.ParseRole(roleName)
		if err != nil {
			return err
		}
		if !role.IsHuman() {
			return fmt.Errorf("role %s cannot be assigned to an account", role)
		}

		s, err := app.OpenStore(cmd.Context(), &config.AppConfig)
		if err != nil {
			return err
		}
		defer s.Close()

		u := &store.User{FullName: name, Email: email, Role: role}
		if err := s.CreateUser(cmd.Context(), u); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), u.ID)
		return nil
	},
}

var userTokenCmd = &cobra.Command{
	Use:   "token <userID>",
	Short: "Issue a signed API token for an existing account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("user id must be a UUID: %w", err)
		}
		if err := config.AppConfig.RequireJWTSecret(); err != nil {
			return err
		}
		ttl, _ := cmd.Flags().GetDuration("ttl")

		s, err := app.OpenStore(cmd.Context(), &config.AppConfig)
		if err != nil {
			return err
		}
		defer s.Close()
		if _, err := s.GetUser(cmd.Context(), id); err != nil {
			return err
		}

		token, err := auth.GenerateJWT(id, config.AppConfig.JWTSecret, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userTokenCmd)

	userCreateCmd.Flags().String("name", "", "Full name")
	userCreateCmd.Flags().String("email", "", "Email address")
	userCreateCmd.Flags().String("role", "user", "Role: user, professional or administrator")
	_ = userCreateCmd.MarkFlagRequired("name")
	_ = userCreateCmd.MarkFlagRequired("email")

	userTokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
}
