// Package services provides the collaborators the issuance service depends on but does not own.
//
//   - Authenticator: checks API keys and resolves the caller identity (tenant and user), either
//     from request headers or from a bearer token issued by an external identity provider.
//   - Notifier: the hook called when an existing pass is re-issued. Pushing updates to devices is
//     handled elsewhere; the default implementation only logs.
//
// Each collaborator is an interface so deployments can swap implementations through configuration.
package services
