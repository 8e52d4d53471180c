// Package command runs the external program of a stage.
//
// A Command turns a command line into the argument vector of its Profile and
// launches it without a shell. The local profile runs the program directly and
// the grid profile submits it through GridSubmitter. Stdout and stderr are
// captured separately and can be written to a log file once the program exits.
package command
