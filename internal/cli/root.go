// Package cli contains the cobra commands. Each command wires the service
// graph via wire.Load, runs one operation, and prints a final numeric
// summary so partial failures are observable even on exit 0.
package cli

// configFile holds the --config persistent flag value; bound by RootCmd.
var configFile string

// ConfigFlagVar exposes the flag target for the root command.
func ConfigFlagVar() *string {
	return &configFile
}
