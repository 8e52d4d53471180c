// Package pipeline chains external command-line tools into a workflow.
//
// A pipeline is built from a settings document and a registry of stage
// definitions. Every stage named in the settings is taken from the registry,
// merged with its overrides and placed in a directed acyclic graph: a stage
// reading a datatype it was not given a location for depends on the only other
// stage producing that datatype. Stages are then ordered topologically and the
// output locations of each producer are attached to the inputs of its
// consumers.
//
// Commands are rendered lazily, right before a stage is launched, because the
// inputs of a stage only exist once its producers have finished. Run yields the
// launched stages one at a time and leaves waiting to the caller. Execute drives
// the whole run and launches the independent stages of the same depth
// concurrently.
//
// Pipeline options hook into construction and execution, for instance to
// measure the stages or draw the graph once the run is over.
package pipeline
