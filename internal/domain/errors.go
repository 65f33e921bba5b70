package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for domain operations
var (
	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrNetworkMismatch is returned when persisted state belongs to another chain
	ErrNetworkMismatch = errors.New("network mismatch")

	// ErrRegistryLocked is returned when another run holds the registry of a network
	ErrRegistryLocked = errors.New("registry is locked by another run")

	// ErrInvalidAddress is returned when an Ethereum address is invalid
	ErrInvalidAddress = errors.New("invalid address")
)

// MissingParameterError is returned when a required parameter resolves to nothing
type MissingParameterError struct {
	Name string
}

func (e MissingParameterError) Error() string {
	return fmt.Sprintf("missing parameter %q: no override, account, environment variable or fallback provided", e.Name)
}

// InvalidParameterError is returned when a parameter source holds a value that can't be parsed
type InvalidParameterError struct {
	Name   string
	Source string
	Err    error
}

func (e InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid value for parameter %q from %s: %v", e.Name, e.Source, e.Err)
}

func (e InvalidParameterError) Unwrap() error { return e.Err }

// StrategyMismatchError is returned when the registry holds a record whose
// proxy-ness disagrees with the requested strategy.
type StrategyMismatchError struct {
	Contract       string
	RecordedProxy  bool
	RequestedProxy bool
}

func (e StrategyMismatchError) Error() string {
	return fmt.Sprintf("strategy mismatch for %s: registry has a %s deployment but %s was requested; fix the registry manually",
		e.Contract, strategyName(e.RecordedProxy), strategyName(e.RequestedProxy))
}

func strategyName(proxy bool) string {
	if proxy {
		return "proxy"
	}
	return "plain"
}

// ABIVersionMismatchError is returned when a recorded contract targets an
// incompatible major ABI version.
type ABIVersionMismatchError struct {
	Contract  string
	Recorded  string
	Requested string
}

func (e ABIVersionMismatchError) Error() string {
	return fmt.Sprintf("abi version mismatch for %s: registry has %s, plan requires %s; deploy breaking versions under a new name",
		e.Contract, e.Recorded, e.Requested)
}

// DeploymentRevertedError is returned when a creation transaction is rejected by the chain
type DeploymentRevertedError struct {
	Contract string
	Reason   string
	Err      error
}

func (e DeploymentRevertedError) Error() string {
	return fmt.Sprintf("deployment of %s reverted: %s", e.Contract, e.Reason)
}

func (e DeploymentRevertedError) Unwrap() error { return e.Err }

// InitializationRevertedError is returned when the initializer call of a fresh proxy fails
type InitializationRevertedError struct {
	Contract string
	Proxy    string
	Reason   string
	Err      error
}

func (e InitializationRevertedError) Error() string {
	return fmt.Sprintf("initialization of %s (proxy %s) reverted: %s", e.Contract, e.Proxy, e.Reason)
}

func (e InitializationRevertedError) Unwrap() error { return e.Err }

// UnknownContractError is returned when a step references a contract with no record
type UnknownContractError struct {
	Name string
}

func (e UnknownContractError) Error() string {
	return fmt.Sprintf("unknown contract %s: no deployment recorded on this network", e.Name)
}

// TransactionTimeoutError is returned when inclusion is not observed in time
type TransactionTimeoutError struct {
	TxHash  string
	Timeout string
}

func (e TransactionTimeoutError) Error() string {
	return fmt.Sprintf("transaction %s not mined within %s; inspect the chain before re-running", e.TxHash, e.Timeout)
}

// TxRevertedError is returned when a mined transaction has a failed status
// or a call is rejected before broadcast.
type TxRevertedError struct {
	TxHash string
	Reason string
}

func (e TxRevertedError) Error() string {
	if e.TxHash == "" {
		return fmt.Sprintf("transaction rejected: %s", e.Reason)
	}
	return fmt.Sprintf("transaction %s reverted: %s", e.TxHash, e.Reason)
}

// ArtifactNotFoundError is returned when no compiled artifact exists for a contract
type ArtifactNotFoundError struct {
	Name string
}

func (e ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("no compiled artifact found for %s (did you run the build?)", e.Name)
}

// UnknownTagError is returned when a requested tag matches no plan step
type UnknownTagError struct {
	Tags      []string
	Available []string
}

func (e UnknownTagError) Error() string {
	return fmt.Sprintf("unknown tag(s) %s; available: %s", strings.Join(e.Tags, ", "), strings.Join(e.Available, ", "))
}

// UnknownParameterError is returned when an override names a parameter the
// plan does not declare
type UnknownParameterError struct {
	Names     []string
	Available []string
}

func (e UnknownParameterError) Error() string {
	return fmt.Sprintf("unknown parameter(s) %s; declared: %s", strings.Join(e.Names, ", "), strings.Join(e.Available, ", "))
}

// PlanValidationError collects every problem found in a plan
type PlanValidationError struct {
	Plan     string
	Problems []string
}

func (e PlanValidationError) Error() string {
	return fmt.Sprintf("plan %s is invalid:\n  - %s", e.Plan, strings.Join(e.Problems, "\n  - "))
}

// RevertReason extracts the most useful reason string from a chain error
func RevertReason(err error) string {
	var reverted TxRevertedError
	if errors.As(err, &reverted) {
		return reverted.Reason
	}
	var timeout TransactionTimeoutError
	if errors.As(err, &timeout) {
		return timeout.Error()
	}
	return err.Error()
}
