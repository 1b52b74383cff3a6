package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler-api/internal/app"
	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	"github.com/noah-isme/exam-scheduler-api/pkg/config"
	"github.com/noah-isme/exam-scheduler-api/pkg/database"
	"github.com/noah-isme/exam-scheduler-api/pkg/logger"
)

// cliDeps lets tests replace configuration loading and logger construction.
type cliDeps struct {
	loadConfig func() (*config.Config, error)
	newLogger  func(cfg *config.Config) (*zap.Logger, error)
}

func defaultDeps() cliDeps {
	return cliDeps{loadConfig: config.Load, newLogger: logger.New}
}

func newRootCmd(rt cliDeps) *cobra.Command {
	root := &cobra.Command{
		Use:           "examctl",
		Short:         "Operate the exam scheduler from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().Duration("timeout", 2*time.Minute, "overall deadline for the command")

	root.AddCommand(
		newMigrateCmd(rt),
		newSlotsCmd(rt),
		newScheduleCmd(rt),
		newConflictsCmd(rt),
		newTokenCmd(rt),
	)
	return root
}

// withApp builds the application for one command and tears it down afterwards.
func withApp(cmd *cobra.Command, rt cliDeps, opts app.Options, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := rt.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := rt.newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	a, err := app.Build(ctx, cfg, logr, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	a.AuditQueue.Start(ctx)
	defer a.AuditQueue.Stop()

	return fn(ctx, a)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMigrateCmd(rt cliDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded Postgres migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rt, app.Options{SkipRedis: true}, func(ctx context.Context, a *app.App) error {
				if a.DB == nil {
					return fmt.Errorf("migrate requires STORAGE_DRIVER=%s", config.StorageDriverPostgres)
				}
				applied, err := database.Migrate(ctx, a.DB, a.Logger)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"applied": applied})
			})
		},
	}
}

func newSlotsCmd(rt cliDeps) *cobra.Command {
	slots := &cobra.Command{Use: "slots", Short: "Manage time slots"}

	var req dto.GenerateTimeSlotsRequest
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Bulk-generate time slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rt, app.Options{}, func(ctx context.Context, a *app.App) error {
				result, err := a.TimeSlots.Generate(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	flags := generate.Flags()
	flags.StringVar(&req.StartDate, "start", time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02"), "first day (YYYY-MM-DD)")
	flags.IntVar(&req.Days, "days", 5, "number of consecutive days")
	flags.StringVar(&req.DayStart, "day-start", "", "first slot start (HH:MM)")
	flags.StringVar(&req.DayEnd, "day-end", "", "latest slot end (HH:MM)")
	flags.StringVar(&req.SlotDuration, "duration", "", "slot length, e.g. 2h")
	flags.StringVar(&req.Step, "step", "", "distance between slot starts, defaults to the slot length")
	flags.StringSliceVar(&req.RoomIDs, "room", nil, "reserve slots for these rooms (repeatable)")

	slots.AddCommand(generate)
	return slots
}

func newScheduleCmd(rt cliDeps) *cobra.Command {
	schedule := &cobra.Command{Use: "schedule", Short: "Run the scheduling engine"}

	var examIDs []string
	var actor string
	run := &cobra.Command{
		Use:   "run",
		Short: "Execute one batch scheduling run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rt, app.Options{}, func(ctx context.Context, a *app.App) error {
				result, err := a.Scheduling.Run(ctx, dto.ScheduleRunRequest{ExamIDs: examIDs}, actor)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	run.Flags().StringSliceVar(&examIDs, "exam", nil, "restrict the run to these exams (repeatable)")
	run.Flags().StringVar(&actor, "actor", "examctl", "name recorded as the run trigger")

	schedule.AddCommand(run)
	return schedule
}

func newConflictsCmd(rt cliDeps) *cobra.Command {
	var query dto.ConflictQuery
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "List conflicts in the committed schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rt, app.Options{SkipRedis: true}, func(ctx context.Context, a *app.App) error {
				report, err := a.Conflicts.List(ctx, query)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().StringVar(&query.Kind, "kind", "", "room, proctor, department or level")
	cmd.Flags().StringVar(&query.Severity, "severity", "", "high, medium or low")
	return cmd
}

func newTokenCmd(rt cliDeps) *cobra.Command {
	var userID, email, role string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token with JWT_SECRET for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rt, app.Options{SkipRedis: true}, func(ctx context.Context, a *app.App) error {
				token, err := a.Auth.IssueToken(userID, email, models.UserRole(role), ttl)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "operator", "subject of the token")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&role, "role", string(models.RolePlanner), "SUPERADMIN, ADMIN, PLANNER or VIEWER")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
