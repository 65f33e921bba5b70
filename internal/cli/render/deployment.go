package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
)

// DeploymentRenderer renders a single contract record
type DeploymentRenderer struct {
	out io.Writer
}

// NewDeploymentRenderer creates a new deployment renderer
func NewDeploymentRenderer(out io.Writer) *DeploymentRenderer {
	return &DeploymentRenderer{out: out}
}

// RenderDeployment prints every field of the record
func (r *DeploymentRenderer) RenderDeployment(network models.NetworkContext, record *models.ContractRecord) error {
	headerStyle.Fprintf(r.out, "%s", record.Name)
	faintStyle.Fprintf(r.out, " on %s (chain %d)\n", network.Name, network.ChainID)
	fmt.Fprintln(r.out, strings.Repeat("─", 50))

	row := func(label string, value any) {
		fmt.Fprintf(r.out, "%-16s %v\n", label+":", value)
	}
	row("Address", addressStyle.Sprint(record.Address.Hex()))
	row("Artifact", lo.Ternary(record.Artifact != "", record.Artifact, record.Name))
	row("Strategy", record.Strategy())
	if record.IsProxy {
		if record.Implementation != nil {
			row("Implementation", record.Implementation.Hex())
		}
		row("Proxy admin", formatAddress(record.ProxyAdmin))
	}
	if record.ABIVersion != "" {
		row("ABI version", record.ABIVersion)
	}
	row("Block", record.DeployedAtBlock)
	if record.TxHash != "" {
		row("Transaction", record.TxHash)
	}
	if !record.DeployedAt.IsZero() {
		row("Deployed at", record.DeployedAt.Format("2006-01-02 15:04:05 MST"))
	}
	if len(record.Args) > 0 {
		fmt.Fprintln(r.out, "Arguments:")
		for i, arg := range record.Args {
			fmt.Fprintf(r.out, "  [%d] %s\n", i, arg)
		}
	}

	if len(record.History) > 0 {
		fmt.Fprintln(r.out)
		headerStyle.Fprintln(r.out, "History")
		t := newTable(nil)
		for _, rev := range record.History {
			t.AppendRow([]any{
				faintStyle.Sprint(rev.SupersededAt.Format("2006-01-02 15:04")),
				rev.Address.Hex(),
				lo.Ternary(rev.ABIVersion != "", rev.ABIVersion, "-"),
				rev.DeployedAtBlock,
			})
		}
		fmt.Fprintln(r.out, t.Render())
	}
	return nil
}

// RenderJSON writes the record as JSON
func (r *DeploymentRenderer) RenderJSON(record *models.ContractRecord) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(record)
}
