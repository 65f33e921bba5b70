package usecase

import (
	"context"
	"fmt"
)

// BuildArtifacts compiles the contracts so deployments use fresh bytecode
type BuildArtifacts struct {
	builder ArtifactBuilder
	sink    ProgressSink
}

// NewBuildArtifacts creates a new BuildArtifacts use case
func NewBuildArtifacts(builder ArtifactBuilder, sink ProgressSink) *BuildArtifacts {
	return &BuildArtifacts{builder: builder, sink: sink}
}

// Run executes the build
func (uc *BuildArtifacts) Run(ctx context.Context) error {
	uc.sink.OnProgress(ctx, ProgressEvent{Stage: "building", Message: "Compiling contracts", Spinner: true})
	defer uc.sink.OnProgress(ctx, ProgressEvent{Stage: "built", Spinner: false})

	if err := uc.builder.Build(ctx); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	return nil
}
