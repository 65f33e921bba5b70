package usecase

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/zeroxblocks/zxb-deploy/internal/domain"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
)

// Parameter sources, in the order they are consulted
const (
	SourceOverride = "override"
	SourceAccount  = "account"
	SourceEnv      = "environment"
	SourceLiteral  = "literal"
	SourceFallback = "fallback"
)

// ResolveParameters turns parameter specs into values. It has no side
// effects: the same specs, network and environment always resolve to the
// same values.
type ResolveParameters struct {
	env EnvironmentSource
}

// NewResolveParameters creates the resolver over an environment snapshot
func NewResolveParameters(env EnvironmentSource) *ResolveParameters {
	return &ResolveParameters{env: env}
}

// ResolvedParameter is a value with the source that produced it
type ResolvedParameter struct {
	Value  models.Value
	Source string
}

// Resolve resolves every spec. Optional specs that resolve to nothing are
// absent from the result; required ones produce a MissingParameterError.
func (r *ResolveParameters) Resolve(specs []models.ParameterSpec, network models.NetworkContext, overrides map[string]string) (models.ResolvedParameters, error) {
	names := make([]string, len(specs))
	for i, spec := range specs {
		names[i] = spec.Name
	}
	return r.ResolveNames(specs, names, network, overrides)
}

// ResolveNames resolves only the named specs plus whatever their fallbacks
// refer to. A missing parameter therefore fails only the steps using it.
func (r *ResolveParameters) ResolveNames(specs []models.ParameterSpec, names []string, network models.NetworkContext, overrides map[string]string) (models.ResolvedParameters, error) {
	detailed, err := r.resolveDetailed(specs, names, network, overrides)
	out := make(models.ResolvedParameters, len(detailed))
	for name, p := range detailed {
		out[name] = p.Value
	}
	return out, err
}

// Explain resolves every spec and reports where each value came from
func (r *ResolveParameters) Explain(specs []models.ParameterSpec, network models.NetworkContext, overrides map[string]string) (map[string]ResolvedParameter, error) {
	names := make([]string, len(specs))
	for i, spec := range specs {
		names[i] = spec.Name
	}
	return r.resolveDetailed(specs, names, network, overrides)
}

func (r *ResolveParameters) resolveDetailed(specs []models.ParameterSpec, names []string, network models.NetworkContext, overrides map[string]string) (map[string]ResolvedParameter, error) {
	res := &resolution{
		resolver:  r,
		specs:     make(map[string]models.ParameterSpec, len(specs)),
		network:   network,
		overrides: overrides,
		done:      make(map[string]ResolvedParameter),
		absent:    make(map[string]error),
		visiting:  make(map[string]bool),
	}
	for _, spec := range specs {
		res.specs[spec.Name] = spec
	}

	var errs []error
	for _, name := range names {
		if _, err := res.resolve(name); err != nil {
			errs = append(errs, err)
		}
	}
	return res.done, errors.Join(errs...)
}

type resolution struct {
	resolver  *ResolveParameters
	specs     map[string]models.ParameterSpec
	network   models.NetworkContext
	overrides map[string]string
	done      map[string]ResolvedParameter
	absent    map[string]error
	visiting  map[string]bool
}

// resolve returns (nil, nil) for an optional parameter without a value
func (s *resolution) resolve(name string) (*ResolvedParameter, error) {
	if p, ok := s.done[name]; ok {
		return &p, nil
	}
	if err, ok := s.absent[name]; ok {
		return nil, err
	}

	spec, ok := s.specs[name]
	if !ok {
		return nil, domain.MissingParameterError{Name: name}
	}
	if s.visiting[name] {
		return nil, fmt.Errorf("parameter %q: fallback cycle", name)
	}
	s.visiting[name] = true
	defer delete(s.visiting, name)

	p, err := s.evaluate(spec)
	if err == nil && p == nil && !spec.Optional {
		err = domain.MissingParameterError{Name: name}
	}
	if err != nil || p == nil {
		s.absent[name] = err
		return nil, err
	}
	s.done[name] = *p
	return p, nil
}

func (s *resolution) evaluate(spec models.ParameterSpec) (*ResolvedParameter, error) {
	decimals := s.network.Decimals()
	parse := func(source, raw string) (*ResolvedParameter, error) {
		v, err := models.ParseTyped(spec.Type, raw, decimals)
		if err != nil {
			return nil, domain.InvalidParameterError{Name: spec.Name, Source: source, Err: err}
		}
		return &ResolvedParameter{Value: v, Source: source}, nil
	}

	if raw, ok := s.overrides[spec.Name]; ok {
		return parse(SourceOverride, raw)
	}

	if spec.Account != "" {
		if addr, ok := s.network.Account(spec.Account); ok {
			return &ResolvedParameter{Value: models.AddressValue(addr), Source: SourceAccount}, nil
		}
	}

	if spec.Env != "" && s.resolver.env != nil {
		if raw, ok := s.resolver.env.Lookup(spec.Env); ok && raw != "" {
			return parse(SourceEnv+" "+spec.Env, raw)
		}
	}

	if raw, ok := spec.Networks[s.network.Name]; ok {
		return parse(SourceLiteral, raw)
	}
	if raw, ok := spec.Networks[strconv.FormatUint(s.network.ChainID, 10)]; ok {
		return parse(SourceLiteral, raw)
	}
	if spec.Literal != nil {
		return parse(SourceLiteral, *spec.Literal)
	}

	if ref, ok := spec.FallbackParam(); ok {
		p, err := s.resolve(ref)
		if err != nil {
			var missing domain.MissingParameterError
			if errors.As(err, &missing) {
				return nil, nil
			}
			return nil, err
		}
		if p == nil {
			return nil, nil
		}
		return &ResolvedParameter{Value: p.Value, Source: SourceFallback + " $" + ref}, nil
	}
	if spec.Fallback != "" {
		return parse(SourceFallback, spec.Fallback)
	}

	return nil, nil
}
