// Package api hosts transport-friendly views of videos and analysis records
// plus the service layer shared by the HTTP server and the CLI. Services
// translate store entities into DTOs so consumers never depend on persistence
// types directly.
package api
