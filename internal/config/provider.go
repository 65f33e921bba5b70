package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/config"
)

// Default project layout
const (
	DefaultPlanFile       = "deploy/plan.yaml"
	DefaultDeploymentsDir = "deployments"
)

// DefaultArtifactDirs are searched for compiled contracts, Foundry first
var DefaultArtifactDirs = []string{"out", "artifacts"}

// Provider creates RuntimeConfig for Wire dependency injection
func Provider(v *viper.Viper) (*config.RuntimeConfig, error) {
	projectRoot := v.GetString("project_root")
	if projectRoot == "" {
		var err error
		projectRoot, err = FindProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to find project root: %w", err)
		}
	}

	loadEnvFiles(projectRoot)

	cfg := &config.RuntimeConfig{
		ProjectRoot:    projectRoot,
		ConfigPath:     projectPath(projectRoot, v.GetString("config")),
		Debug:          v.GetBool("debug"),
		Verbose:        v.GetBool("verbose"),
		NonInteractive: v.GetBool("non_interactive"),
		JSON:           v.GetBool("json"),
		Timeout:        v.GetDuration("timeout"),
	}

	deploy, err := loadDeployConfig(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.Deploy = deploy

	foundry, err := loadFoundryConfig(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to load foundry config: %w", err)
	}
	cfg.Foundry = foundry

	plan := firstNonEmpty(v.GetString("plan"), deploy.Plan, DefaultPlanFile)
	cfg.PlanPath = projectPath(projectRoot, plan)
	cfg.DeploymentsDir = projectPath(projectRoot, firstNonEmpty(deploy.Deployments, DefaultDeploymentsDir))

	dirs := deploy.Artifacts
	if len(dirs) == 0 {
		dirs = DefaultArtifactDirs
	}
	for _, dir := range dirs {
		cfg.ArtifactDirs = append(cfg.ArtifactDirs, projectPath(projectRoot, dir))
	}
	cfg.BuildCommand = deploy.BuildCommand

	if networkName := v.GetString("network"); networkName != "" {
		network, err := NewNetworkResolver(projectRoot, deploy, foundry).Resolve(networkName)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve network %s: %w", networkName, err)
		}
		cfg.Network = network
	}

	return cfg, nil
}

// FindProjectRoot walks up from the current directory to the first one
// holding deploy.toml or foundry.toml.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, marker := range []string{DeployFileName, FoundryFileName} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a deployment project (neither deploy.toml nor foundry.toml found)")
		}
		dir = parent
	}
}

// SetupViper creates and configures a viper instance. Flags are bound with
// dashes turned into underscores so ZXB_NON_INTERACTIVE and
// --non-interactive land on the same key.
func SetupViper(projectRoot string, cmd *cobra.Command) *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix("ZXB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	v.SetDefault("timeout", "30m")
	v.SetDefault("debug", false)
	v.SetDefault("non_interactive", false)
	v.SetDefault("config", DeployFileName)
	v.SetDefault("project_root", projectRoot)

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil {
			panic(err)
		}
	})

	return v
}

// ProvideNetworkResolver creates a NetworkResolver for Wire dependency injection
func ProvideNetworkResolver(cfg *config.RuntimeConfig) *NetworkResolver {
	return NewNetworkResolver(cfg.ProjectRoot, cfg.Deploy, cfg.Foundry)
}

func projectPath(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
