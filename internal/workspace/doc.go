// Package workspace manages the scratch directory one verification run
// builds in. It provides the Scratch type that holds the temporary root and
// the original invocation directory, and guarantees both are absolute paths
// so later steps never depend on the process working directory.
package workspace
