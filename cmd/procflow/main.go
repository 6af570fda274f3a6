/*
procflow is a CLI for working with workflows on an embedded process engine.

Usage:

	procflow [flags]
	procflow [command]

Available Commands:

	completion Generate the autocompletion script for the specified shell
	definition Deploy and query workflow definitions
	help       Help about any command
	instance   Start, signal and query workflow instances
	run-jobs   Execute due jobs
	task       Manage and query workflow tasks
	version    Show version

Flags:

	    --debug                Log engine and adapter internals
	    --engine-id string     ID of the embedded engine, used as global ID prefix (default "procflow")
	-h, --help                 help for procflow
	    --multi-tenant         Qualify definition keys per tenant domain
	    --repo-config string   Path to a JSON file with repository data (types, people, messages)
	    --user string          User ID the command runs as (default "System")

Use "procflow [command] --help" for more information about a command.
*/
package main

import (
	"os"

	"github.com/procflow/procflow/cli"
)

var (
	version = "unknown-version"
)

func main() {
	cli := cli.New(version)
	os.Exit(cli.Execute())
}
