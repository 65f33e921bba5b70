package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/zeroxblocks/zxb-deploy/internal/domain"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

// MigrationRenderer prints a migration as it runs and its final summary
type MigrationRenderer struct {
	out io.Writer
}

// NewMigrationRenderer creates a new migration renderer
func NewMigrationRenderer(out io.Writer) *MigrationRenderer {
	return &MigrationRenderer{out: out}
}

// Writer returns the io.Writer used by this renderer
func (r *MigrationRenderer) Writer() io.Writer {
	return r.out
}

// RenderPlan displays the selected steps before anything runs
func (r *MigrationRenderer) RenderPlan(result *usecase.MigrationResult) {
	mode := ""
	if result.DryRun {
		mode = warnStyle.Sprint(" (dry run)")
	}
	fmt.Fprintf(r.out, "\n🎯 Migrating %s on %s (chain %d)%s\n", result.Plan, Title(result.Network.Name), result.Network.ChainID, mode)
	if len(result.Tags) > 0 {
		fmt.Fprintf(r.out, "🏷️  Tags: %s\n", tagsStyle.Sprint(strings.Join(result.Tags, ", ")))
	}
	fmt.Fprintf(r.out, "📋 %d step(s) selected\n\n", len(result.Selected))

	headerStyle.Fprintln(r.out, "📋 Execution Plan:")
	fmt.Fprintf(r.out, "%s\n", strings.Repeat("─", 50))
	for i, step := range result.Selected {
		fmt.Fprintf(r.out, "%d. ", i+1)
		nameStyle.Fprint(r.out, step.ID)
		fmt.Fprintf(r.out, " → %s", describeStep(&step))
		if len(step.DependsOn) > 0 {
			faintStyle.Fprintf(r.out, " (depends on: %s)", strings.Join(step.DependsOn, ", "))
		}
		fmt.Fprintln(r.out)
	}
	fmt.Fprintln(r.out)
}

// RenderStepStart prints the step header
func (r *MigrationRenderer) RenderStepStart(current, total int, step *models.DeploymentStep) {
	fmt.Fprintf(r.out, "[%d/%d] ", current, total)
	headerStyle.Fprintf(r.out, "%s", step.ID)
	faintStyle.Fprintf(r.out, " %s\n", describeStep(step))
}

// RenderStepResult prints the outcome line of one step
func (r *MigrationRenderer) RenderStepResult(res *models.DeploymentResult) {
	switch res.Outcome {
	case models.OutcomeDeployed:
		okStyle.Fprintf(r.out, "  ✓ Deployed %s at %s", res.Contract, res.Detail)
		if res.Record != nil && res.Record.IsProxy && res.Record.Implementation != nil {
			faintStyle.Fprintf(r.out, " (implementation %s)", res.Record.Implementation.Hex())
		}
		fmt.Fprintln(r.out)
	case models.OutcomeReused:
		okStyle.Fprintf(r.out, "  ✓ Reused %s at %s\n", res.Contract, res.Detail)
	case models.OutcomeWired:
		okStyle.Fprintf(r.out, "  ✓ Wired %s.%s\n", res.Contract, res.Detail)
	case models.OutcomeSkipped:
		warnStyle.Fprintf(r.out, "  ⊘ %s", res.Label())
		if res.Detail != "" {
			faintStyle.Fprintf(r.out, ": %s", res.Detail)
		}
		fmt.Fprintln(r.out)
	case models.OutcomePlanned:
		nameStyle.Fprintf(r.out, "  ○ Planned: %s\n", res.Detail)
	case models.OutcomeFailed:
		errStyle.Fprintf(r.out, "  ❌ Failed: %v\n", res.Err)
		if res.Err != nil {
			if reason := domain.RevertReason(res.Err); reason != "" && !strings.Contains(res.Err.Error(), reason) {
				errStyle.Fprintf(r.out, "     Reason: %s\n", reason)
			}
		}
	}
	if res.TxHash != "" {
		faintStyle.Fprintf(r.out, "    tx %s\n", shortHash(res.TxHash))
	}
}

// RenderSummary prints the totals once the run is over
func (r *MigrationRenderer) RenderSummary(result *usecase.MigrationResult) {
	fmt.Fprintf(r.out, "\n%s\n", strings.Repeat("═", 50))

	if failed, ok := result.FailedStep(); ok {
		color.New(color.FgRed, color.Bold).Fprintf(r.out, "💥 Migration halted at %s\n", failed.StepID)
	} else if result.DryRun {
		color.New(color.FgYellow, color.Bold).Fprintf(r.out, "📝 Dry run of %s on %s complete\n", result.Plan, result.Network.Name)
	} else {
		color.New(color.FgGreen, color.Bold).Fprintf(r.out, "🎉 Migrated %s on %s\n", result.Plan, result.Network.Name)
	}

	fmt.Fprintf(r.out, "\n📊 Summary:\n")
	for _, outcome := range []models.Outcome{
		models.OutcomeDeployed,
		models.OutcomeReused,
		models.OutcomeWired,
		models.OutcomeSkipped,
		models.OutcomePlanned,
		models.OutcomeFailed,
	} {
		if n := result.Count(outcome); n > 0 {
			fmt.Fprintf(r.out, "  • %s: %d\n", outcome, n)
		}
	}
	if rest := result.NotAttempted(); len(rest) > 0 {
		ids := make([]string, len(rest))
		for i, step := range rest {
			ids[i] = step.ID
		}
		fmt.Fprintf(r.out, "  • Not attempted: %d (%s)\n", len(rest), strings.Join(ids, ", "))
	}
	fmt.Fprintf(r.out, "  • Duration: %s\n", formatDuration(result.Duration))
}

func describeStep(step *models.DeploymentStep) string {
	switch {
	case step.Deploy != nil:
		s := "deploy " + step.Deploy.Contract
		if step.Deploy.Strategy == models.StrategyProxy {
			s += " (proxy)"
		}
		return s
	case step.Wire != nil:
		return fmt.Sprintf("wire %s.%s", step.Wire.Target, step.Wire.Method)
	}
	return ""
}
