package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/secmon-lab/taskmirror/pkg/domain/interfaces"
	"github.com/secmon-lab/taskmirror/pkg/domain/model"
	"github.com/secmon-lab/taskmirror/pkg/domain/types"
)

// consoleProgress renders sync progress to stdout
type consoleProgress struct {
	interfaces.NoopProgress
	taskCount int
}

var _ interfaces.SyncProgress = &consoleProgress{}

func (p *consoleProgress) SyncStarted(ctx context.Context, key types.EntityKey) {
	p.taskCount = 0
	fmt.Printf("Syncing %s ...\n", key)
}

func (p *consoleProgress) TaskSynced(ctx context.Context, key types.EntityKey, taskGID types.GID) {
	p.taskCount++
	if p.taskCount%50 == 0 {
		fmt.Printf("  %d tasks\n", p.taskCount)
	}
}

func (p *consoleProgress) BatchCompleted(ctx context.Context, key types.EntityKey, completed, total int) {
	fmt.Printf("  batch %d/%d done\n", completed, total)
}

func (p *consoleProgress) SyncFinished(ctx context.Context, report *model.SyncReport) {
	printReport(report)
}

func printReport(report *model.SyncReport) {
	var c *color.Color
	switch report.Status {
	case types.SyncStatusSuccess:
		c = color.New(color.FgGreen)
	case types.SyncStatusPartialFailure:
		c = color.New(color.FgYellow)
	default:
		c = color.New(color.FgRed)
	}

	c.Printf("%s: %s", report.EntityKey, report.Status)
	fmt.Printf("  (%d synced, %d failed, batches %d/%d)",
		report.ItemsSynced, report.ItemsFailed, report.BatchesCompleted, report.BatchesTotal)
	if report.Error != "" {
		fmt.Printf("  %s", report.Error)
	}
	fmt.Println()
}
