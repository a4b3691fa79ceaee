// Package inspect serves a read-only HTTP view of a di.Container.
//
// Routes:
//
//	GET /container                     container id and counts
//	GET /container/registrations       every registration, filterable by ?module= and ?scope=
//	GET /container/modules             module ids with active flag and teardown count
//	GET /container/capabilities/:key   the registration a Resolve of key would use
//	GET /healthz                       aggregated module health
//	GET /version                       build information
//
// Unknown capabilities answer 404 with the UNREGISTERED_CAPABILITY error body.
// Nothing here resolves capabilities, so browsing never runs a factory.
package inspect
