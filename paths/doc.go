// Package paths provides the default locations of the runtime files of the
// checkpoint service, following the XDG conventions.
package paths
