package render

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

// PlanRenderer renders a plan preview
type PlanRenderer struct {
	out io.Writer
}

// NewPlanRenderer creates a new plan renderer
func NewPlanRenderer(out io.Writer) *PlanRenderer {
	return &PlanRenderer{out: out}
}

// RenderPlan prints the selected steps and, when a network is selected,
// how each parameter resolves on it.
func (r *PlanRenderer) RenderPlan(preview *usecase.PlanPreview) error {
	headerStyle.Fprintf(r.out, "📋 %s", preview.Plan.Name)
	faintStyle.Fprintf(r.out, " (%s)\n", preview.Plan.Source)
	if preview.Network.Name != "" {
		fmt.Fprintf(r.out, "🌐 %s (chain %d)\n", Title(preview.Network.Name), preview.Network.ChainID)
	}
	fmt.Fprintln(r.out)

	t := newTable(table.Row{"#", "Step", "Action", "Tags", "Applies"})
	for i, ps := range preview.Steps {
		applies := okStyle.Sprint("yes")
		if !ps.Applies {
			applies = warnStyle.Sprintf("no (%s)", ps.Reason)
		}
		t.AppendRow(table.Row{
			i + 1,
			nameStyle.Sprint(ps.Step.ID),
			describeStep(&ps.Step),
			tagsStyle.Sprint(strings.Join(ps.Step.Tags, ", ")),
			applies,
		})
	}
	fmt.Fprintln(r.out, t.Render())

	if len(preview.Plan.External) > 0 {
		fmt.Fprintln(r.out)
		headerStyle.Fprintln(r.out, "External contracts")
		names := lo.Keys(preview.Plan.External)
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(r.out, "  %s = %s\n", nameStyle.Sprint(name), preview.Plan.External[name])
		}
	}

	if preview.Network.Name == "" {
		return nil
	}

	fmt.Fprintln(r.out)
	headerStyle.Fprintln(r.out, "Parameters")
	pt := newTable(table.Row{"Name", "Value", "Source"})
	for _, spec := range preview.Plan.Parameters {
		resolved, ok := preview.Parameters[spec.Name]
		if !ok {
			status := errStyle.Sprint("unresolved")
			if spec.Optional {
				status = faintStyle.Sprint("unset (optional)")
			}
			pt.AppendRow(table.Row{spec.Name, status, ""})
			continue
		}
		pt.AppendRow(table.Row{spec.Name, resolved.Value.String(), faintStyle.Sprint(resolved.Source)})
	}
	fmt.Fprintln(r.out, pt.Render())

	if preview.ParameterErr != nil {
		fmt.Fprintln(r.out)
		for _, err := range unjoin(preview.ParameterErr) {
			fmt.Fprintln(r.out, FormatWarning(err.Error()))
		}
	}
	return nil
}

// unjoin splits an errors.Join result back into its parts
func unjoin(err error) []error {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		return joined.Unwrap()
	}
	return []error{err}
}
