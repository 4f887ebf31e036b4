/*
Package orchestrator runs the checkpoint engine in order to dump a process into
an image directory.

The [Criu] orchestrator hands a single dump request built from a
[config.Checkpoint] to the CRIU binary in its “swrk” (service worker) mode,
using the go-criu client. Notifications from the engine while dumping get
logged to the dump log of the request and acknowledged.
*/
package orchestrator
