/*
Package worker serves exactly one checkpoint request on an accepted client
connection.

A [Worker] runs through the states of a single request: it decodes the request,
resolves the kernel-attested identity of its [Peer] as well as the image
directory, merges the request options into a fresh checkpoint configuration,
has the process dumped, and finally responds. Any failure after decoding still
gets answered with an unsuccessful response; failing to decode a request gets
answered with a generic error response, unless configured to stay silent.

The service runs each Worker in its own process, so that requests are isolated
from each other, and the working directory of a worker can be freely changed
into the image directory of its client.
*/
package worker
