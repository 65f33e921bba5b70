package config

import (
	"context"

	"github.com/zeroxblocks/zxb-deploy/internal/config"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

// NetworkListerAdapter adapts config.NetworkResolver to usecase.NetworkLister
type NetworkListerAdapter struct {
	resolver *config.NetworkResolver
}

// NewNetworkListerAdapter creates a new adapter
func NewNetworkListerAdapter(resolver *config.NetworkResolver) *NetworkListerAdapter {
	return &NetworkListerAdapter{resolver: resolver}
}

// ListNetworks resolves every configured network. Resolution errors are
// reported per network instead of failing the listing.
func (a *NetworkListerAdapter) ListNetworks(ctx context.Context) []usecase.NetworkInfo {
	names := a.resolver.Names()
	infos := make([]usecase.NetworkInfo, 0, len(names))
	for _, name := range names {
		network, err := a.resolver.Resolve(name)
		if err != nil {
			infos = append(infos, usecase.NetworkInfo{Name: name, Error: err})
			continue
		}
		infos = append(infos, usecase.NetworkInfo{
			Name:    name,
			RPCURL:  network.RPCURL,
			ChainID: network.ChainID,
			Source:  network.Source,
		})
	}
	return infos
}

// Ensure the adapter implements the interface
var _ usecase.NetworkLister = (*NetworkListerAdapter)(nil)
