package plan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/lo"
	"github.com/zeroxblocks/zxb-deploy/internal/domain"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
	"gopkg.in/yaml.v3"
)

// planFile is the on-disk YAML layout
type planFile struct {
	Name       string          `yaml:"name"`
	Parameters []parameterFile `yaml:"parameters"`
	External   map[string]any  `yaml:"external"`
	Steps      []stepFile      `yaml:"steps"`
}

type parameterFile struct {
	Name     string         `yaml:"name"`
	Type     string         `yaml:"type"`
	Account  string         `yaml:"account"`
	Env      string         `yaml:"env"`
	Literal  any            `yaml:"literal"`
	Networks map[string]any `yaml:"networks"`
	Fallback any            `yaml:"fallback"`
	Optional bool           `yaml:"optional"`
}

type stepFile struct {
	ID           string      `yaml:"id"`
	Tags         []string    `yaml:"tags"`
	DependsOn    []string    `yaml:"depends_on"`
	SkipNetworks []string    `yaml:"skip_networks"`
	OnlyNetworks []string    `yaml:"only_networks"`
	Deploy       *deployFile `yaml:"deploy"`
	Wire         *wireFile   `yaml:"wire"`
}

type deployFile struct {
	Contract string     `yaml:"contract"`
	Artifact string     `yaml:"artifact"`
	Strategy string     `yaml:"strategy"`
	Args     []any      `yaml:"args"`
	Version  string     `yaml:"version"`
	Proxy    *proxyFile `yaml:"proxy"`
}

type proxyFile struct {
	Artifact           string `yaml:"artifact"`
	Admin              any    `yaml:"admin"`
	Initializer        string `yaml:"initializer"`
	ImplementationArgs []any  `yaml:"implementation_args"`
}

type wireFile struct {
	Target string     `yaml:"target"`
	Method string     `yaml:"method"`
	Args   []any      `yaml:"args"`
	Guard  *guardFile `yaml:"guard"`
}

type guardFile struct {
	Read     string `yaml:"read"`
	ReadArgs []any  `yaml:"read_args"`
	Expect   any    `yaml:"expect"`
}

var (
	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	typePattern  = regexp.MustCompile(`^(address|bool|string|bytes([1-9]|[12][0-9]|3[0-2])?|u?int(8|16|24|32|40|48|56|64|72|80|88|96|104|112|120|128|136|144|152|160|168|176|184|192|200|208|216|224|232|240|248|256)?)(\[\])?$`)
)

// FileLoader reads the plan from a YAML file. The parsed plan is cached for
// the lifetime of the loader.
type FileLoader struct {
	path string
	log  *slog.Logger

	once sync.Once
	plan *models.Plan
	err  error
}

// NewFileLoader creates a loader for the plan at path
func NewFileLoader(path string, log *slog.Logger) *FileLoader {
	return &FileLoader{path: path, log: log.With("component", "PlanLoader")}
}

// Path returns the plan file location
func (l *FileLoader) Path() string { return l.path }

// Load parses and validates the plan
func (l *FileLoader) Load(ctx context.Context) (*models.Plan, error) {
	l.once.Do(func() {
		data, err := os.ReadFile(l.path)
		if err != nil {
			if os.IsNotExist(err) {
				l.err = fmt.Errorf("plan file not found: %s", l.path)
			} else {
				l.err = fmt.Errorf("failed to read plan: %w", err)
			}
			return
		}
		l.plan, l.err = Parse(data, l.path)
		if l.err == nil {
			l.log.Debug("loaded plan", "name", l.plan.Name, "steps", len(l.plan.Steps), "path", l.path)
		}
	})
	return l.plan, l.err
}

// Parse decodes and validates a plan document. source names the document in
// error messages.
func Parse(data []byte, source string) (*models.Plan, error) {
	var raw planFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse plan %s: %w", source, err)
	}

	name := raw.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}

	c := &converter{source: source}
	plan := &models.Plan{
		Name:       name,
		Source:     source,
		Parameters: c.parameters(raw.Parameters),
		External:   c.external(raw.External),
		Steps:      c.steps(raw.Steps),
	}
	if len(c.problems) == 0 {
		validate(plan, c)
	}

	if len(c.problems) > 0 {
		return nil, domain.PlanValidationError{Plan: source, Problems: c.problems}
	}
	return plan, nil
}

// converter accumulates problems so one pass reports all of them
type converter struct {
	source   string
	problems []string
}

func (c *converter) addf(format string, args ...any) {
	c.problems = append(c.problems, fmt.Sprintf(format, args...))
}

func (c *converter) parameters(raw []parameterFile) []models.ParameterSpec {
	specs := make([]models.ParameterSpec, 0, len(raw))
	for i, p := range raw {
		where := fmt.Sprintf("parameters[%d]", i)
		if p.Name != "" {
			where = fmt.Sprintf("parameter %s", p.Name)
		}
		if !identPattern.MatchString(p.Name) {
			c.addf("%s: invalid name %q", where, p.Name)
		}
		if p.Type != "" && !typePattern.MatchString(p.Type) {
			c.addf("%s: unsupported type %q", where, p.Type)
		}

		spec := models.ParameterSpec{
			Name:     p.Name,
			Type:     p.Type,
			Account:  p.Account,
			Env:      p.Env,
			Optional: p.Optional,
		}
		if p.Literal != nil {
			s, err := scalar(p.Literal)
			if err != nil {
				c.addf("%s: literal: %v", where, err)
			}
			spec.Literal = &s
		}
		if len(p.Networks) > 0 {
			spec.Networks = make(map[string]string, len(p.Networks))
			for network, v := range p.Networks {
				s, err := scalar(v)
				if err != nil {
					c.addf("%s: networks.%s: %v", where, network, err)
				}
				spec.Networks[network] = s
			}
		}
		if p.Fallback != nil {
			s, err := scalar(p.Fallback)
			if err != nil {
				c.addf("%s: fallback: %v", where, err)
			}
			spec.Fallback = s
		}
		specs = append(specs, spec)
	}
	return specs
}

func (c *converter) external(raw map[string]any) map[string]models.ArgSpec {
	out := make(map[string]models.ArgSpec, len(raw))
	for name, v := range raw {
		spec, err := models.ParseArgSpec(v)
		if err != nil {
			c.addf("external %s: %v", name, err)
			continue
		}
		if spec.Kind == models.ArgList {
			c.addf("external %s: must be a single address", name)
			continue
		}
		out[name] = spec
	}
	return out
}

func (c *converter) args(where string, raw []any) []models.ArgSpec {
	out := make([]models.ArgSpec, 0, len(raw))
	for i, v := range raw {
		spec, err := models.ParseArgSpec(v)
		if err != nil {
			c.addf("%s: argument %d: %v", where, i, err)
			continue
		}
		out = append(out, spec)
	}
	return out
}

func (c *converter) arg(where string, raw any) models.ArgSpec {
	spec, err := models.ParseArgSpec(raw)
	if err != nil {
		c.addf("%s: %v", where, err)
	}
	return spec
}

func (c *converter) steps(raw []stepFile) []models.DeploymentStep {
	steps := make([]models.DeploymentStep, 0, len(raw))
	for i, s := range raw {
		where := fmt.Sprintf("steps[%d]", i)
		if s.ID != "" {
			where = fmt.Sprintf("step %s", s.ID)
		} else {
			c.addf("%s: missing id", where)
		}

		step := models.DeploymentStep{
			ID:           s.ID,
			Tags:         s.Tags,
			DependsOn:    s.DependsOn,
			SkipNetworks: s.SkipNetworks,
			OnlyNetworks: s.OnlyNetworks,
		}
		if len(s.Tags) == 0 {
			c.addf("%s: at least one tag is required", where)
		}

		switch {
		case s.Deploy != nil && s.Wire != nil:
			c.addf("%s: has both deploy and wire", where)
		case s.Deploy != nil:
			step.Deploy = c.deploy(where, s.Deploy)
		case s.Wire != nil:
			step.Wire = c.wire(where, s.Wire)
		default:
			c.addf("%s: needs a deploy or wire block", where)
		}
		steps = append(steps, step)
	}
	return steps
}

func (c *converter) deploy(where string, d *deployFile) *models.DeploySpec {
	spec := &models.DeploySpec{
		Contract: d.Contract,
		Artifact: d.Artifact,
		Args:     c.args(where, d.Args),
		Version:  d.Version,
	}
	if d.Contract == "" {
		c.addf("%s: deploy.contract is required", where)
	}

	switch models.Strategy(d.Strategy) {
	case "":
		spec.Strategy = models.StrategyPlain
		if d.Proxy != nil {
			spec.Strategy = models.StrategyProxy
		}
	case models.StrategyPlain, models.StrategyProxy:
		spec.Strategy = models.Strategy(d.Strategy)
	default:
		c.addf("%s: unknown strategy %q (want plain or proxy)", where, d.Strategy)
	}

	if d.Proxy != nil && spec.Strategy == models.StrategyPlain {
		c.addf("%s: proxy settings given for a plain deployment", where)
	}
	if spec.Strategy == models.StrategyProxy {
		p := d.Proxy
		if p == nil {
			p = &proxyFile{}
		}
		spec.Proxy = &models.ProxySpec{
			Artifact:           lo.Ternary(p.Artifact != "", p.Artifact, models.DefaultProxyArtifact),
			Initializer:        lo.Ternary(p.Initializer != "", p.Initializer, models.DefaultInitializer),
			ImplementationArgs: c.args(where+" implementation", p.ImplementationArgs),
		}
		if p.Admin != nil {
			spec.Proxy.Admin = c.arg(where+" proxy.admin", p.Admin)
		}
	}

	if d.Version != "" {
		if _, err := semver.NewVersion(d.Version); err != nil {
			c.addf("%s: invalid version %q: %v", where, d.Version, err)
		}
	}
	return spec
}

func (c *converter) wire(where string, w *wireFile) *models.WireSpec {
	spec := &models.WireSpec{
		Target: w.Target,
		Method: w.Method,
		Args:   c.args(where, w.Args),
	}
	if w.Target == "" {
		c.addf("%s: wire.target is required", where)
	}
	if w.Method == "" {
		c.addf("%s: wire.method is required", where)
	}

	if w.Guard == nil || w.Guard.Read == "" {
		c.addf("%s: wire.guard.read is required", where)
		return spec
	}
	spec.Guard = models.WiringGuard{
		ReadMethod: w.Guard.Read,
		ReadArgs:   c.args(where+" guard", w.Guard.ReadArgs),
	}
	switch {
	case w.Guard.Expect != nil:
		spec.Guard.Expected = c.arg(where+" guard.expect", w.Guard.Expect)
	case len(spec.Args) == 1:
		// A single-argument setter is satisfied when the getter returns it
		spec.Guard.Expected = spec.Args[0]
	default:
		c.addf("%s: wire.guard.expect is required when %s takes %d arguments", where, w.Method, len(spec.Args))
	}
	return spec
}

// validate checks cross references once every piece parsed
func validate(plan *models.Plan, c *converter) {
	params := map[string]bool{}
	for _, p := range plan.Parameters {
		if params[p.Name] {
			c.addf("parameter %s: declared twice", p.Name)
		}
		params[p.Name] = true
	}
	for _, p := range plan.Parameters {
		if ref, ok := p.FallbackParam(); ok && !params[ref] {
			c.addf("parameter %s: fallback refers to undeclared parameter %s", p.Name, ref)
		}
	}

	for name, spec := range plan.External {
		for _, ref := range spec.Params() {
			if !params[ref] {
				c.addf("external %s: undeclared parameter %s", name, ref)
			}
		}
		if spec.Kind == models.ArgContract {
			c.addf("external %s: may not refer to another contract", name)
		}
	}

	ids := map[string]bool{}
	produced := map[string]string{}
	for i := range plan.Steps {
		step := &plan.Steps[i]
		where := "step " + step.ID
		if ids[step.ID] {
			c.addf("%s: duplicate id", where)
		}
		ids[step.ID] = true

		for _, ref := range step.ParamRefs() {
			if !params[ref] {
				c.addf("%s: undeclared parameter %s", where, ref)
			}
		}

		// References must point at an external or a contract deployed by an
		// earlier step; the deploying step itself does not count.
		refs := slices.Concat(step.DependsOn, step.ContractRefs())
		for _, ref := range lo.Uniq(refs) {
			if _, ok := plan.External[ref]; ok {
				continue
			}
			if _, ok := produced[ref]; ok {
				continue
			}
			if _, later := plan.Producer(ref); later {
				c.addf("%s: refers to %s before the step that deploys it", where, ref)
				continue
			}
			c.addf("%s: unknown contract %s (not deployed by the plan nor declared external)", where, ref)
		}

		for _, ref := range step.ContractRefs() {
			if step.Deploy != nil && ref == step.Deploy.Contract {
				continue
			}
			if !slices.Contains(step.DependsOn, ref) {
				c.addf("%s: references %s but does not list it in depends_on", where, ref)
			}
		}

		if step.Deploy != nil {
			if prev, ok := produced[step.Deploy.Contract]; ok {
				c.addf("%s: %s is already deployed by step %s", where, step.Deploy.Contract, prev)
			}
			if _, ok := plan.External[step.Deploy.Contract]; ok {
				c.addf("%s: %s is declared external", where, step.Deploy.Contract)
			}
			produced[step.Deploy.Contract] = step.ID
		}

		if len(step.SkipNetworks) > 0 && len(step.OnlyNetworks) > 0 {
			c.addf("%s: skip_networks and only_networks are mutually exclusive", where)
		}
	}
}

// scalar renders a YAML scalar as the string the value parsers expect
func scalar(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			s, err := scalar(item)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return strings.Join(parts, ","), nil
	}
	return "", fmt.Errorf("unsupported value %v", v)
}

// Ensure FileLoader implements PlanLoader
var _ usecase.PlanLoader = (*FileLoader)(nil)
