package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"agencydesk/internal/audit"
	"agencydesk/internal/config"
	"agencydesk/internal/db"
	"agencydesk/internal/domain"
	"agencydesk/internal/engine"
	"agencydesk/internal/migrate"
	"agencydesk/internal/server"
)

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage agencydesk.yml"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default agencydesk.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate agencydesk.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(viper.GetString("workspace")); err != nil {
				return err
			}
			fmt.Println("config ok")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dbCfg := db.Config{Workspace: viper.GetString("workspace")}
			conn, err := db.Open(dbCfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			applied, err := migrate.Apply(ctx, conn)
			if err != nil {
				return err
			}
			version, err := migrate.Version(ctx, conn)
			if err != nil {
				return err
			}
			return printJSONOrTable(map[string]any{
				"database": db.Path(dbCfg),
				"applied":  applied,
				"version":  version,
			})
		},
	}
}

// ---- users and clients ----

func userCmd() *cobra.Command {
	u := &cobra.Command{Use: "user", Short: "Manage users"}
	u.AddCommand(userCreateCmd())
	u.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				users, err := e.ListUsers(ctx, actor())
				if err != nil {
					return err
				}
				return printRows(users, table.Row{"ID", "Name", "Email", "Role"}, func(u domain.User) table.Row {
					return table.Row{u.ID, u.Name, u.Email, u.Role}
				})
			})
		},
	})
	u.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.GetUser(ctx, actor(), id)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	})
	u.AddCommand(&cobra.Command{
		Use:   "use <id>",
		Short: "Act as this user by default (writes AGENCYDESK_USER_ID to .env)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			workspace := viper.GetString("workspace")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if _, err := e.Repo.GetUser(ctx, id); err != nil {
					return fmt.Errorf("user %d: %w", id, err)
				}
				if err := setEnvValue(filepath.Join(workspace, ".env"), "AGENCYDESK_USER_ID", strconv.FormatInt(id, 10)); err != nil {
					return err
				}
				fmt.Printf("acting as user %d\n", id)
				return nil
			})
		},
	})
	return u
}

func userCreateCmd() *cobra.Command {
	var opts engine.UserCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.CreateUser(ctx, actor(), opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Email, "email", "", "email address")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Role, "role", "specialist", "admin|account_lead|project_lead|specialist")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func clientCmd() *cobra.Command {
	c := &cobra.Command{Use: "client", Short: "Manage clients"}
	var opts engine.ClientCreateOptions
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a client",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				client, err := e.CreateClient(ctx, actor(), opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(client)
			})
		},
	}
	create.Flags().StringVar(&opts.Name, "name", "", "client name")
	create.Flags().StringVar(&opts.Sector, "sector", "", "industry sector")
	create.Flags().StringVar(&opts.Status, "status", "active", "active|inactive|prospect")
	_ = create.MarkFlagRequired("name")
	c.AddCommand(create)
	c.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				clients, err := e.ListClients(ctx, actor())
				if err != nil {
					return err
				}
				return printRows(clients, table.Row{"ID", "Name", "Sector", "Status"}, func(c domain.Client) table.Row {
					return table.Row{c.ID, c.Name, c.Sector, c.Status}
				})
			})
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				client, err := e.GetClient(ctx, actor(), id)
				if err != nil {
					return err
				}
				return printJSONOrTable(client)
			})
		},
	})
	return c
}

// ---- credentials ----

func apikeyCmd() *cobra.Command {
	k := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	var forUser int64
	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Issue an API key; the secret is shown once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if forUser == 0 {
					forUser = actor().UserID
				}
				issued, err := e.CreateAPIKey(ctx, actor(), forUser, name)
				if err != nil {
					return err
				}
				return printJSONOrTable(issued)
			})
		},
	}
	create.Flags().Int64Var(&forUser, "for-user", 0, "owning user id (defaults to --user-id)")
	create.Flags().StringVar(&name, "name", "", "label")
	k.AddCommand(create)

	var listUser int64
	list := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				keys, err := e.ListAPIKeys(ctx, actor(), listUser)
				if err != nil {
					return err
				}
				return printRows(keys, table.Row{"ID", "User", "Name", "Created"}, func(k domain.APIKey) table.Row {
					return table.Row{k.ID, k.UserID, k.Name, k.CreatedAt}
				})
			})
		},
	}
	list.Flags().Int64Var(&listUser, "for-user", 0, "only keys of this user")
	k.AddCommand(list)

	k.AddCommand(&cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.RevokeAPIKey(ctx, actor(), args[0]); err != nil {
					return err
				}
				fmt.Println("revoked", args[0])
				return nil
			})
		},
	})
	return k
}

func auditCmd() *cobra.Command {
	a := &cobra.Command{Use: "audit", Short: "Inspect the audit log"}
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List audit entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				entries, err := audit.Writer{DB: e.DB}.List(ctx, limit)
				if err != nil {
					return err
				}
				return printRows(entries, table.Row{"ID", "User", "Action", "Resource", "Resource ID", "Request", "At"}, func(x domain.AuditEntry) table.Row {
					return table.Row{x.ID, x.UserID, x.Action, x.ResourceType, deref(x.ResourceID), x.RequestID, x.CreatedAt}
				})
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 50, "max entries (0 for all)")
	a.AddCommand(list)
	return a
}

func tokenCmd() *cobra.Command {
	var forUser int64
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with AGENCYDESK_JWT_SECRET (development)",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := config.LoadServerEnv()
			if err != nil {
				return err
			}
			if forUser == 0 {
				forUser = actor().UserID
			}
			if forUser <= 0 {
				return fmt.Errorf("--for-user or --user-id required")
			}
			err = withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				_, err := e.Repo.GetUser(ctx, forUser)
				return err
			})
			if err != nil {
				return fmt.Errorf("user %d: %w", forUser, err)
			}
			token, err := server.SignToken(env.JWTSecret, forUser, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&forUser, "for-user", 0, "subject user id (defaults to --user-id)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime; 0 for no expiry")
	return cmd
}
