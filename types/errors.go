package types

import "errors"

var (
	ErrMissingEnvironment   = errors.New("environment name is required")
	ErrEmptySubscription    = errors.New("subscription ID is empty")
	ErrSubscriptionMismatch = errors.New("active subscription does not match requested subscription")
	ErrNoContext            = errors.New("no subscription context has been set")
	ErrNoTemplate           = errors.New("export returned no template")
	ErrUnsafeName           = errors.New("name cannot be used as a path segment")
	ErrEnvironmentsFailed   = errors.New("one or more environments failed")
	ErrNoServicePrincipal   = errors.New("parallel az cli backups need a service principal per environment")
)
