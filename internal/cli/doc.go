// Package cli turns the gribdef command line into an app.Config. It owns
// the flag set, the usage text, the GRIBDEF_DEFINITION_PATH fallback and the
// exit codes reported for bad invocations.
package cli
