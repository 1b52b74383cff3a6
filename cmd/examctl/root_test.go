package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler-api/internal/dto"
	"github.com/noah-isme/exam-scheduler-api/pkg/config"
)

func memoryDeps() cliDeps {
	return cliDeps{
		loadConfig: func() (*config.Config, error) {
			return &config.Config{
				Storage: config.StorageConfig{Driver: config.StorageDriverMemory, SeedData: true},
				JWT:     config.JWTConfig{Secret: "secret"},
				Scheduler: config.SchedulerConfig{
					MinProctors:  1,
					LockDriver:   config.LockDriverLocal,
					RunTimeout:   5 * time.Second,
					DayStart:     8 * time.Hour,
					DayEnd:       18 * time.Hour,
					SlotDuration: 2 * time.Hour,
				},
				Audit: config.AuditConfig{Workers: 1, BufferSize: 4},
			}, nil
		},
		newLogger: func(*config.Config) (*zap.Logger, error) { return zap.NewNop(), nil },
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(memoryDeps())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestScheduleRunCommand(t *testing.T) {
	out, err := execute(t, "schedule", "run", "--actor", "ops")
	require.NoError(t, err)

	var result dto.ScheduleRunResponse
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 3, result.ScheduledCount)
}

func TestSlotsGenerateCommand(t *testing.T) {
	out, err := execute(t, "slots", "generate", "--start", "2030-01-07", "--days", "2")
	require.NoError(t, err)

	var result dto.GenerateTimeSlotsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 10, result.Created)
}

func TestConflictsCommandRejectsBadFilter(t *testing.T) {
	_, err := execute(t, "conflicts", "--kind", "weather")
	require.Error(t, err)
}

func TestMigrateRequiresPostgres(t *testing.T) {
	_, err := execute(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_DRIVER")
}

func TestTokenCommand(t *testing.T) {
	out, err := execute(t, "token", "--role", "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(strings.TrimSpace(out), ".")))

	_, err = execute(t, "token", "--role", "JANITOR")
	require.Error(t, err)
}
