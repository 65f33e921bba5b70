package forge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

// DefaultBuildCommand compiles a Foundry project
var DefaultBuildCommand = []string{"forge", "build"}

// Builder runs the project's compile command. Output is streamed through a
// PTY when verbose so the compiler keeps its colors.
type Builder struct {
	log         *slog.Logger
	projectRoot string
	command     []string
	verbose     bool
	out         io.Writer
	refresh     func()
}

// NewBuilder creates a new builder. An empty command means forge build.
func NewBuilder(projectRoot string, command []string, verbose bool, log *slog.Logger) *Builder {
	if len(command) == 0 {
		command = DefaultBuildCommand
	}
	return &Builder{
		log:         log.With("component", "Builder"),
		projectRoot: projectRoot,
		command:     command,
		verbose:     verbose,
		out:         os.Stdout,
	}
}

// OnBuilt registers a callback run after a successful build, used to drop
// stale artifact indexes.
func (b *Builder) OnBuilt(fn func()) {
	b.refresh = fn
}

// Build runs the compile command
func (b *Builder) Build(ctx context.Context) error {
	start := time.Now()
	b.log.Debug("running build", "command", strings.Join(b.command, " "), "dir", b.projectRoot)

	cmd := exec.CommandContext(ctx, b.command[0], b.command[1:]...)
	cmd.Dir = b.projectRoot
	cmd.Env = os.Environ()

	var err error
	if b.verbose {
		err = b.streamed(cmd)
	} else {
		var output []byte
		output, err = cmd.CombinedOutput()
		if err != nil {
			b.log.Error("build failed", "error", err, "output", string(output), "duration", time.Since(start))
			return fmt.Errorf("%s failed: %w\nOutput: %s", b.command[0], err, strings.TrimSpace(string(output)))
		}
	}
	if err != nil {
		return err
	}

	b.log.Debug("build completed", "duration", time.Since(start))
	if b.refresh != nil {
		b.refresh()
	}
	return nil
}

func (b *Builder) streamed(cmd *exec.Cmd) error {
	ptyFile, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("failed to start pty: %w", err)
	}
	defer func() {
		_ = ptyFile.Close()
	}()

	// Reading a PTY returns EIO once the child exits; that is the normal end.
	_, _ = io.Copy(b.out, ptyFile)

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s failed: %w", b.command[0], err)
	}
	return nil
}

var _ usecase.ArtifactBuilder = (*Builder)(nil)
