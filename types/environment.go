package types

import "strings"

type Environment struct {
	Name           string
	SubscriptionID string
	TenantID       string
	ClientID       string
	ClientSecret   string
	Enabled        bool
}

// HasServicePrincipal reports whether the environment carries a full set of
// client secret credentials.
func (environment Environment) HasServicePrincipal() bool {
	return environment.TenantID != "" && environment.ClientID != "" && environment.ClientSecret != ""
}

type ExecutionPolicy string

const (
	ExecutionPolicySequential ExecutionPolicy = "sequential"
	ExecutionPolicyParallel   ExecutionPolicy = "parallel"
)

func (executionPolicy ExecutionPolicy) IsValidExecutionPolicy() bool {
	switch executionPolicy {
	case ExecutionPolicySequential,
		ExecutionPolicyParallel:
		return true
	default:
		return false
	}
}

type Backend string

const (
	BackendSDK Backend = "sdk"
	BackendCLI Backend = "cli"
)

func (backend Backend) IsValidBackend() bool {
	switch backend {
	case BackendSDK,
		BackendCLI:
		return true
	default:
		return false
	}
}

type DiscoveryMethod string

const (
	DiscoveryMethodResourceGroups DiscoveryMethod = "resourceGroups"
	DiscoveryMethodResourceGraph  DiscoveryMethod = "resourceGraph"
)

func (discoveryMethod DiscoveryMethod) IsValidDiscoveryMethod() bool {
	switch discoveryMethod {
	case DiscoveryMethodResourceGroups,
		DiscoveryMethodResourceGraph:
		return true
	default:
		return false
	}
}

// SameSubscription compares subscription IDs, which are case-insensitive GUIDs.
func SameSubscription(a string, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
