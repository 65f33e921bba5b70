package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

// DeploymentsRenderer renders the contracts recorded on a network
type DeploymentsRenderer struct {
	out io.Writer
}

// NewDeploymentsRenderer creates a new deployments renderer
func NewDeploymentsRenderer(out io.Writer) *DeploymentsRenderer {
	return &DeploymentsRenderer{out: out}
}

// RenderDeploymentList renders deployments as a table
func (r *DeploymentsRenderer) RenderDeploymentList(result *usecase.DeploymentListResult) error {
	if len(result.Deployments) == 0 {
		fmt.Fprintf(r.out, "No deployments found on %s\n", result.Network.Name)
		return nil
	}

	headerStyle.Fprintf(r.out, "🌐 %s", Title(result.Network.Name))
	faintStyle.Fprintf(r.out, " (chain %d)\n\n", result.Network.ChainID)

	t := newTable(table.Row{"Contract", "Address", "Type", "Version", "Block", "Deployed"})
	for _, record := range result.Deployments {
		kind := "plain"
		if record.IsProxy {
			kind = "proxy"
		}
		version := lo.Ternary(record.ABIVersion != "", record.ABIVersion, "-")
		deployed := "-"
		if !record.DeployedAt.IsZero() {
			deployed = faintStyle.Sprint(record.DeployedAt.Format("2006-01-02 15:04:05"))
		}
		t.AppendRow(table.Row{
			nameStyle.Sprint(record.Name),
			addressStyle.Sprint(record.Address.Hex()),
			kind,
			version,
			record.DeployedAtBlock,
			deployed,
		})
		if record.IsProxy && record.Implementation != nil {
			t.AppendRow(table.Row{faintStyle.Sprint("└─ implementation"), faintStyle.Sprint(record.Implementation.Hex()), "", "", "", ""})
		}
	}
	fmt.Fprintln(r.out, t.Render())
	return nil
}

// RenderJSON writes the records as a JSON array
func (r *DeploymentsRenderer) RenderJSON(records []*models.ContractRecord) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
