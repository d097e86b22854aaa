// Package cli implements the conformance command-line tool.
//
// # Commands
//
// check - Check one or more trees against a rule set:
//
//	conformance check [--rules PATH]... [--builtin NAME] [--format text|json|markdown|html] [ROOT]...
//
// rules - List the sections and rules of a rule set:
//
//	conformance rules [--rules PATH]... [--builtin NAME] [--available]
//
// lint - Validate rule files without checking anything:
//
//	conformance lint [PATH]...
//
// watch - Re-check a tree whenever files under it change:
//
//	conformance watch [--serve ADDR] [ROOT]
//
// # Exit Status
//
//	0  every blocking assertion passed
//	1  at least one blocking assertion failed (or any warning with --strict)
//	2  the configuration or the rule set is invalid
//
// # Configuration
//
// Settings are read, in increasing precedence, from built-in
// defaults, .conformance.yaml (or --config), CONFORMANCE_*
// variables in .env (or --env-file) and the process environment,
// and finally command-line flags.
package cli
