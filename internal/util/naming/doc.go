// Package naming provides the deterministic names of the objects managed for a
// workspace.
//
// Names derive only from the workspace name, so a repeated reconciliation
// always targets the same objects: the pod and the service reuse the
// workspace name and the volume claim appends a "-pvc" suffix.
package naming
