package models

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// StepKind distinguishes the two step variants
type StepKind string

const (
	StepDeploy StepKind = "deploy"
	StepWire   StepKind = "wire"
)

// Strategy is how a contract is deployed
type Strategy string

const (
	StrategyPlain Strategy = "plain"
	StrategyProxy Strategy = "proxy"
)

// Default proxy settings, matching the transparent proxy used by the contracts
const (
	DefaultProxyArtifact = "OptimizedTransparentProxy"
	DefaultInitializer   = "initialize"
)

// ArgKind is the type tag of an ArgSpec
type ArgKind string

const (
	ArgParam    ArgKind = "param"
	ArgContract ArgKind = "contract"
	ArgLiteral  ArgKind = "literal"
	ArgList     ArgKind = "list"
)

// ArgSpec describes a call argument before resolution:
//
//	$name                     resolved parameter
//	@Contract                 address of a deployed or external contract
//	@Contract.implementation  logic address behind a proxy
//	anything else             literal, parsed per ParseLiteral
type ArgSpec struct {
	Kind     ArgKind
	Param    string
	Contract string
	Field    string
	Literal  any
	Items    []ArgSpec
}

// ParseArgSpec builds an ArgSpec from a decoded YAML node
func ParseArgSpec(raw any) (ArgSpec, error) {
	switch t := raw.(type) {
	case nil:
		return ArgSpec{}, fmt.Errorf("argument may not be null")
	case string:
		switch {
		case strings.HasPrefix(t, "$"):
			name := strings.TrimPrefix(t, "$")
			if name == "" {
				return ArgSpec{}, fmt.Errorf("empty parameter reference")
			}
			return ArgSpec{Kind: ArgParam, Param: name}, nil
		case strings.HasPrefix(t, "@"):
			name, field, _ := strings.Cut(strings.TrimPrefix(t, "@"), ".")
			if name == "" {
				return ArgSpec{}, fmt.Errorf("empty contract reference")
			}
			if field != "" && field != "implementation" && field != "address" {
				return ArgSpec{}, fmt.Errorf("unknown contract field %q in %s", field, t)
			}
			if field == "address" {
				field = ""
			}
			return ArgSpec{Kind: ArgContract, Contract: name, Field: field}, nil
		}
		return ArgSpec{Kind: ArgLiteral, Literal: t}, nil
	case []any:
		items := make([]ArgSpec, 0, len(t))
		for i, item := range t {
			spec, err := ParseArgSpec(item)
			if err != nil {
				return ArgSpec{}, fmt.Errorf("item %d: %w", i, err)
			}
			items = append(items, spec)
		}
		return ArgSpec{Kind: ArgList, Items: items}, nil
	case map[string]any:
		return ArgSpec{}, fmt.Errorf("maps are not valid arguments")
	default:
		return ArgSpec{Kind: ArgLiteral, Literal: t}, nil
	}
}

// MustArgs parses a list of raw arguments, panicking on error. Intended for
// plans assembled in code.
func MustArgs(raw ...any) []ArgSpec {
	out := make([]ArgSpec, len(raw))
	for i, r := range raw {
		spec, err := ParseArgSpec(r)
		if err != nil {
			panic(err)
		}
		out[i] = spec
	}
	return out
}

// MustArg is MustArgs for a single argument
func MustArg(raw any) ArgSpec {
	return MustArgs(raw)[0]
}

func (a ArgSpec) String() string {
	switch a.Kind {
	case ArgParam:
		return "$" + a.Param
	case ArgContract:
		if a.Field != "" {
			return "@" + a.Contract + "." + a.Field
		}
		return "@" + a.Contract
	case ArgList:
		parts := lo.Map(a.Items, func(item ArgSpec, _ int) string { return item.String() })
		return "[" + strings.Join(parts, ", ") + "]"
	case ArgLiteral:
		return fmt.Sprint(a.Literal)
	default:
		return ""
	}
}

// IsZero reports whether the argument was never set
func (a ArgSpec) IsZero() bool { return a.Kind == "" }

// Params returns every parameter referenced by the argument
func (a ArgSpec) Params() []string {
	switch a.Kind {
	case ArgParam:
		return []string{a.Param}
	case ArgList:
		return lo.FlatMap(a.Items, func(item ArgSpec, _ int) []string { return item.Params() })
	}
	return nil
}

// Contracts returns every contract referenced by the argument
func (a ArgSpec) Contracts() []string {
	switch a.Kind {
	case ArgContract:
		return []string{a.Contract}
	case ArgList:
		return lo.FlatMap(a.Items, func(item ArgSpec, _ int) []string { return item.Contracts() })
	}
	return nil
}

// ParameterSpec declares a named configuration value and where it comes from.
// Sources are consulted in a fixed order: override, named account,
// environment variable, literal (per network first), fallback.
type ParameterSpec struct {
	Name     string
	Type     string
	Account  string
	Env      string
	Literal  *string
	Networks map[string]string
	Fallback string
	Optional bool
}

// FallbackParam returns the parameter the fallback refers to, if any
func (p ParameterSpec) FallbackParam() (string, bool) {
	if name, ok := strings.CutPrefix(p.Fallback, "$"); ok && name != "" {
		return name, true
	}
	return "", false
}

// ResolvedParameters maps parameter names to their values for one run
type ResolvedParameters map[string]Value

// WiringGuard is the read-before-write check of a wire step
type WiringGuard struct {
	ReadMethod string
	ReadArgs   []ArgSpec
	Expected   ArgSpec
}

// ProxySpec configures the proxy strategy
type ProxySpec struct {
	Artifact           string
	Admin              ArgSpec
	Initializer        string
	ImplementationArgs []ArgSpec
}

// DeploySpec is the deploy variant of a step
type DeploySpec struct {
	Contract string
	Artifact string
	Strategy Strategy
	Args     []ArgSpec
	Version  string
	Proxy    *ProxySpec
}

// ArtifactName returns the compiled artifact backing the contract
func (d *DeploySpec) ArtifactName() string {
	if d.Artifact != "" {
		return d.Artifact
	}
	return d.Contract
}

// WireSpec is the wire variant of a step
type WireSpec struct {
	Target string
	Method string
	Args   []ArgSpec
	Guard  WiringGuard
}

// DeploymentStep is one unit of orchestration work. Exactly one of Deploy and
// Wire is set.
type DeploymentStep struct {
	ID           string
	Tags         []string
	DependsOn    []string
	SkipNetworks []string
	OnlyNetworks []string
	Deploy       *DeploySpec
	Wire         *WireSpec
}

// Kind returns the step variant
func (s *DeploymentStep) Kind() StepKind {
	if s.Wire != nil {
		return StepWire
	}
	return StepDeploy
}

// Contract returns the contract deployed or targeted by the step
func (s *DeploymentStep) Contract() string {
	if s.Wire != nil {
		return s.Wire.Target
	}
	if s.Deploy != nil {
		return s.Deploy.Contract
	}
	return ""
}

// HasTag reports whether the step carries the tag
func (s *DeploymentStep) HasTag(tag string) bool {
	return slices.ContainsFunc(s.Tags, func(t string) bool { return strings.EqualFold(t, tag) })
}

// AppliesTo evaluates the network predicate of the step. Entries match
// either the network name or its decimal chain id.
func (s *DeploymentStep) AppliesTo(network string, chainID uint64) bool {
	matches := func(entry string) bool {
		entry = strings.TrimSpace(entry)
		return strings.EqualFold(entry, network) || entry == strconv.FormatUint(chainID, 10)
	}
	if slices.ContainsFunc(s.SkipNetworks, matches) {
		return false
	}
	if len(s.OnlyNetworks) > 0 && !slices.ContainsFunc(s.OnlyNetworks, matches) {
		return false
	}
	return true
}

// PredicateDescription explains why a step does not apply to a network
func (s *DeploymentStep) PredicateDescription(network string) string {
	if len(s.OnlyNetworks) > 0 {
		return fmt.Sprintf("only runs on %s", strings.Join(s.OnlyNetworks, ", "))
	}
	return fmt.Sprintf("skipped on %s", network)
}

// Arguments returns every ArgSpec the step evaluates
func (s *DeploymentStep) Arguments() []ArgSpec {
	var args []ArgSpec
	if s.Deploy != nil {
		args = append(args, s.Deploy.Args...)
		if s.Deploy.Proxy != nil {
			args = append(args, s.Deploy.Proxy.ImplementationArgs...)
			if !s.Deploy.Proxy.Admin.IsZero() {
				args = append(args, s.Deploy.Proxy.Admin)
			}
		}
	}
	if s.Wire != nil {
		args = append(args, s.Wire.Args...)
		args = append(args, s.Wire.Guard.ReadArgs...)
		if !s.Wire.Guard.Expected.IsZero() {
			args = append(args, s.Wire.Guard.Expected)
		}
	}
	return args
}

// ParamRefs returns the distinct parameters referenced by the step
func (s *DeploymentStep) ParamRefs() []string {
	return lo.Uniq(lo.FlatMap(s.Arguments(), func(a ArgSpec, _ int) []string { return a.Params() }))
}

// ContractRefs returns the distinct contracts the step needs addresses for
func (s *DeploymentStep) ContractRefs() []string {
	refs := lo.FlatMap(s.Arguments(), func(a ArgSpec, _ int) []string { return a.Contracts() })
	if s.Wire != nil {
		refs = append([]string{s.Wire.Target}, refs...)
	}
	return lo.Uniq(refs)
}

// Plan is a named, ordered sequence of tagged steps
type Plan struct {
	Name       string
	Source     string
	Parameters []ParameterSpec
	External   map[string]ArgSpec
	Steps      []DeploymentStep
}

// Parameter looks up a parameter declaration by name
func (p *Plan) Parameter(name string) (ParameterSpec, bool) {
	return lo.Find(p.Parameters, func(spec ParameterSpec) bool { return spec.Name == name })
}

// ParameterNames returns the declared parameter names in declaration order
func (p *Plan) ParameterNames() []string {
	return lo.Map(p.Parameters, func(spec ParameterSpec, _ int) string { return spec.Name })
}

// UndeclaredParameters returns the override names the plan does not declare, sorted
func (p *Plan) UndeclaredParameters(overrides map[string]string) []string {
	declared := p.ParameterNames()
	var unknown []string
	for name := range overrides {
		if !slices.Contains(declared, name) {
			unknown = append(unknown, name)
		}
	}
	slices.Sort(unknown)
	return unknown
}

// Tags returns the distinct tags in declaration order
func (p *Plan) Tags() []string {
	return lo.Uniq(lo.FlatMap(p.Steps, func(s DeploymentStep, _ int) []string { return s.Tags }))
}

// Producer returns the step deploying the contract
func (p *Plan) Producer(contract string) (*DeploymentStep, bool) {
	for i := range p.Steps {
		if p.Steps[i].Deploy != nil && p.Steps[i].Deploy.Contract == contract {
			return &p.Steps[i], true
		}
	}
	return nil, false
}

// Contracts returns every contract deployed by the plan in order
func (p *Plan) Contracts() []string {
	return lo.FilterMap(p.Steps, func(s DeploymentStep, _ int) (string, bool) {
		if s.Deploy == nil {
			return "", false
		}
		return s.Deploy.Contract, true
	})
}

// Select returns the steps carrying any of the tags, in declared order. An
// empty tag list selects the whole plan. Tags that match nothing are returned
// separately.
func (p *Plan) Select(tags []string) ([]DeploymentStep, []string) {
	if len(tags) == 0 {
		return slices.Clone(p.Steps), nil
	}

	unknown := lo.Filter(tags, func(tag string, _ int) bool {
		return !lo.ContainsBy(p.Steps, func(s DeploymentStep) bool { return s.HasTag(tag) })
	})

	selected := lo.Filter(p.Steps, func(s DeploymentStep, _ int) bool {
		return lo.ContainsBy(tags, func(tag string) bool { return s.HasTag(tag) })
	})
	return selected, unknown
}
