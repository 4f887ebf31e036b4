/*
Package config provides the per-request checkpoint configuration as well as the
service-wide settings.

Each dump request gets its own [Checkpoint] value: it starts out from the
service defaults and then [Checkpoint.Merge] overrides only those options that
are present in the request. Absent options never reset a default.

The service-wide [Settings] can be read from a YAML file, such as:

	defaults:
	  tcp-established: true
	  file-locks: true
	policy:
	  same-uid: true
	compat:
	  silent-protocol-errors: false
*/
package config
