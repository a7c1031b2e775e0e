package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/JonMunkholm/campaign/internal/auth"
	"github.com/JonMunkholm/campaign/internal/core"
	db "github.com/JonMunkholm/campaign/internal/database"
	"github.com/JonMunkholm/campaign/internal/leaders"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, pool, err := setup(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.Migrate(ctx, pool); err != nil {
				return err
			}
			slog.Info("schema up to date")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Load reference data",
	}

	var file string
	leadersCmd := &cobra.Command{
		Use:   "leaders",
		Short: "Insert or update leaders from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			list, err := leaders.ParseSeed(f)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}

			ctx := cmd.Context()
			_, pool, err := setup(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			src := core.NewDBLeaderSource(pool)
			for _, l := range list {
				saved, err := src.UpsertLeader(ctx, l)
				if err != nil {
					return err
				}
				slog.Debug("leader saved", "id", saved.ID, "name", saved.DisplayName())
			}
			slog.Info("leaders seeded", "count", len(list), "file", file)
			return nil
		},
	}
	leadersCmd.Flags().StringVarP(&file, "file", "f", "leaders.yaml", "YAML file with a top-level leaders list")
	seed.AddCommand(leadersCmd)
	return seed
}

func staffCmd() *cobra.Command {
	staff := &cobra.Command{
		Use:   "staff",
		Short: "Manage staff accounts",
	}

	var email, name string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a staff account",
		Long: "Create a staff account. The password is read from CAMPAIGN_STAFF_PASSWORD " +
			"or, when unset, from the first line of standard input.",
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv("CAMPAIGN_STAFF_PASSWORD")
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			ctx := cmd.Context()
			_, pool, err := setup(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			created, err := auth.NewDBStore(pool).CreateAccount(ctx, email, name, password)
			if err != nil {
				return err
			}
			slog.Info("staff account created", "id", created.ID, "email", created.Email)
			return nil
		},
	}
	add.Flags().StringVar(&email, "email", "", "login email (required)")
	add.Flags().StringVar(&name, "name", "", "display name")
	_ = add.MarkFlagRequired("email")
	staff.AddCommand(add)
	return staff
}
