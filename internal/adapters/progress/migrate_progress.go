package progress

import (
	"context"

	"github.com/zeroxblocks/zxb-deploy/internal/cli/render"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

// MigrateProgress renders migration events as they happen
type MigrateProgress struct {
	renderer *render.MigrationRenderer
	spinner  *SpinnerProgressReporter

	planRendered bool
}

// NewMigrateProgress creates a new migration progress reporter
func NewMigrateProgress(renderer *render.MigrationRenderer) *MigrateProgress {
	return &MigrateProgress{
		renderer: renderer,
		spinner:  NewSpinnerProgressReporter(),
	}
}

// OnProgress handles progress events for a migration
func (p *MigrateProgress) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	switch event.Stage {
	case usecase.StagePlanSelected:
		if result, ok := event.Metadata.(*usecase.MigrationResult); ok && !p.planRendered {
			p.renderer.RenderPlan(result)
			p.planRendered = true
		}

	case usecase.StageStepStarting:
		if step, ok := event.Metadata.(*models.DeploymentStep); ok {
			p.spinner.Stop()
			p.renderer.RenderStepStart(event.Current, event.Total, step)
		}

	case usecase.StageStepCompleted:
		p.spinner.Stop()
		if res, ok := event.Metadata.(*models.DeploymentResult); ok {
			p.renderer.RenderStepResult(res)
		}

	case usecase.StageMigrationCompleted:
		// The summary is rendered by the command once Run returns
		p.spinner.Stop()

	default:
		p.spinner.OnProgress(ctx, event)
	}
}

// Info forwards info messages to the spinner
func (p *MigrateProgress) Info(message string) {
	p.spinner.Info(message)
}

// Error forwards error messages to the spinner
func (p *MigrateProgress) Error(message string) {
	p.spinner.Error(message)
}

// Ensure MigrateProgress implements ProgressSink
var _ usecase.ProgressSink = (*MigrateProgress)(nil)
