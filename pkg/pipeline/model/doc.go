// Package model provides the data structures shared by the pipeline packages.
// It defines the typed input/output slots of a stage, the parameter records,
// the user settings document and the hooks a pipeline option can register.
package model
