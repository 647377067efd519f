// Package build is the single entry point for running a configured site
// build. It turns a loaded configuration into an engine through the module
// registry and executes it. The CLI and the watch loop both route through
// Service.
package build
