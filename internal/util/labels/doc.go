// Package labels provides the labels applied to objects managed for a workspace.
//
// The pair app=<workload label>, instance=<workspace name> binds the workspace
// pod to its service: the pod carries it and the service selects on exactly
// that pair. Both sides must build it through this package.
package labels
