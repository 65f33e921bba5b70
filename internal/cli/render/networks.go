package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

// NetworksRenderer renders network lists
type NetworksRenderer struct {
	out io.Writer
}

// NewNetworksRenderer creates a new networks renderer
func NewNetworksRenderer(out io.Writer) *NetworksRenderer {
	return &NetworksRenderer{out: out}
}

// RenderNetworksList renders the configured networks with their chain ids
func (r *NetworksRenderer) RenderNetworksList(result *usecase.ListNetworksResult) error {
	if len(result.Networks) == 0 {
		fmt.Fprintln(r.out, "No networks configured in deploy.toml [networks] or foundry.toml [rpc_endpoints]")
		return nil
	}

	fmt.Fprintln(r.out, "🌐 Available Networks:")
	fmt.Fprintln(r.out)

	t := newTable(table.Row{"", "Network", "Chain ID", "Source"})
	for _, network := range result.Networks {
		if network.Error != nil {
			t.AppendRow(table.Row{"❌", network.Name, errStyle.Sprintf("error: %v", network.Error), faintStyle.Sprint(network.Source)})
			continue
		}
		t.AppendRow(table.Row{"✅", nameStyle.Sprint(network.Name), network.ChainID, faintStyle.Sprint(network.Source)})
	}
	fmt.Fprintln(r.out, t.Render())
	return nil
}
