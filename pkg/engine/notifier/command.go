package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// CommandTrigger starts a process and returns without waiting for it.
// The process is reaped in the background.
type CommandTrigger struct {
	Argv   []string
	Dir    string
	Logger *slog.Logger

	wg sync.WaitGroup
}

// NewCommandTrigger splits command on whitespace. An empty command yields nil.
func NewCommandTrigger(command string, logger *slog.Logger) *CommandTrigger {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandTrigger{Argv: argv, Logger: logger}
}

func (c *CommandTrigger) Fire(ctx context.Context, s Summary) error {
	// Not bound to ctx: the process outlives the run.
	cmd := exec.Command(c.Argv[0], c.Argv[1:]...)
	cmd.Dir = c.Dir
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(),
		"SKYBALANCE_RUN_ID="+s.RunID,
		"SKYBALANCE_STAGE="+s.Stage,
		"SKYBALANCE_CYCLE="+strconv.Itoa(s.Cycle),
		"SKYBALANCE_ARTIFACT="+s.Artifact,
	)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %q: %w", strings.Join(c.Argv, " "), err)
	}
	c.Logger.Info("Trigger started", "stage", s.Stage, "command", strings.Join(c.Argv, " "), "pid", cmd.Process.Pid)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := cmd.Wait(); err != nil {
			c.Logger.Warn("Trigger exited with error", "stage", s.Stage, "error", err)
			return
		}
		c.Logger.Debug("Trigger finished", "stage", s.Stage)
	}()
	return nil
}

// Wait blocks until every started process has exited.
func (c *CommandTrigger) Wait() {
	c.wg.Wait()
}
