package usecase

import (
	"context"
	"sort"
)

// ListNetworksResult contains the result of listing networks
type ListNetworksResult struct {
	Networks []NetworkInfo
}

// ListNetworks is a use case for listing available networks
type ListNetworks struct {
	lister NetworkLister
}

// NewListNetworks creates a new ListNetworks use case
func NewListNetworks(lister NetworkLister) *ListNetworks {
	return &ListNetworks{
		lister: lister,
	}
}

// Run executes the use case
func (uc *ListNetworks) Run(ctx context.Context) (*ListNetworksResult, error) {
	networks := uc.lister.ListNetworks(ctx)
	sort.Slice(networks, func(i, j int) bool { return networks[i].Name < networks[j].Name })
	return &ListNetworksResult{Networks: networks}, nil
}
