package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"agencydesk/internal/app"
	"agencydesk/internal/domain"
	"agencydesk/internal/engine"
)

var rootCmd = &cobra.Command{
	Use:   "desk",
	Short: "Agencydesk CLI",
	Long: `Agencydesk runs the client-service core of an agency.
- Projects: created for a client with six stages (onboarding to post-project review) and five mandatory files.
- Tasks: work items ordered by priority and due date; statuses pending, in_progress, review, blocked, completed, approved.
- Approvals: a peer review then a senior approval; opening one puts the task in review, senior approval approves it.
- Analytics: monthly KPI counts, overdue and due-soon tasks, open risks, pending approvals and project health.
Policies in agencydesk.yml tighten the defaults; see 'desk config init'.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// initConfig loads the workspace .env before viper reads the environment, so values
// written by 'desk user use' become flag defaults.
func initConfig() {
	workspace := viper.GetString("workspace")
	if workspace == "" {
		workspace = "."
	}
	if err := godotenv.Load(filepath.Join(workspace, ".env")); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "warning: read .env:", err)
	}
	viper.SetEnvPrefix("AGENCYDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().Int64("user-id", 0, "acting user id")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("user-id", rootCmd.PersistentFlags().Lookup("user-id"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(clientCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(stageCmd())
	rootCmd.AddCommand(briefCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(approvalCmd())
	rootCmd.AddCommand(riskCmd())
	rootCmd.AddCommand(escalationCmd())
	rootCmd.AddCommand(analyticsCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(serveCmd())
}

func actor() domain.Actor {
	return domain.Actor{UserID: viper.GetInt64("user-id"), Source: "cli"}
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	ws, err := app.Open(ctx, viper.GetString("workspace"), slog.Default())
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(ctx, ws.Engine)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRows renders items as a table, or as JSON with --json.
func printRows[T any](items []T, header table.Row, row func(T) table.Row) error {
	if viper.GetBool("json") {
		if items == nil {
			items = []T{}
		}
		return printJSON(items)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(header)
	for _, it := range items {
		tw.AppendRow(row(it))
	}
	tw.Render()
	return nil
}

func setEnvValue(path, key, value string) error {
	var lines []string
	seen := false
	f, err := os.Open(path)
	if err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, key+"=") {
				lines = append(lines, fmt.Sprintf("%s=%s", key, value))
				seen = true
			} else {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return err
		}
		f.Close()
	} else if !os.IsNotExist(err) {
		return err
	}
	if !seen {
		lines = append(lines, fmt.Sprintf("%s=%s", key, value))
	}
	content := strings.Join(lines, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalID(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}

func deref[T any](p *T) any {
	if p == nil {
		return ""
	}
	return *p
}
