// Package params parses and stores the definition of every stage a pipeline can run.
//
// A stage is described once in a catalog (the installed set of stages) by its root
// directory, its output directory, its typed inputs and outputs and the parameters of
// each sub-process it runs. The catalog entry is turned into a Params value which is
// then merged with the user overrides and attached to the stages it depends on: the
// location of every output of a parent is copied into the matching input of the child.
//
// Two registries are provided. NewInternalSet keeps the catalog names as they are,
// NewExternalSet flattens a catalog nested three levels deep into dotted names.
package params
