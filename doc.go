/*
Package crservice is the request-dispatch front-end of a process checkpoint
service: a daemon that accepts local connections from cooperating processes,
authenticates each connection using kernel-verified peer credentials, and then
checkpoints (“dumps”) a process into an image directory the caller has open.

The caller never sends a path. Instead, it sends the number of a file
descriptor that is open in its own descriptor table and references the image
directory. The service reaches this directory through
“/proc/<peer-pid>/fd/<fd>”, so it can only ever act on directories the peer
process already legitimately has open.

# Architecture

  - [github.com/thediveo/crservice/dispatcher] owns the listening
    SOCK_SEQPACKET unix domain socket and spawns one isolated worker process
    per accepted connection.
  - [github.com/thediveo/crservice/worker] handles exactly one request on its
    connection: decoding, resolving the peer and its image directory, merging
    the request options, dumping, and responding.
  - [github.com/thediveo/crservice/criumsg] and
    [github.com/thediveo/crservice/api] implement the wire codec and the typed
    request and response values.
  - [github.com/thediveo/crservice/orchestrator] drives the actual checkpoint
    engine.

# Errors

Errors returned from the packages of this module wrap one of the error kinds
defined in this package, such as [ErrSetup], so callers can use [errors.Is] to
classify failures while still inspecting the underlying OS-level cause.
*/
package crservice
