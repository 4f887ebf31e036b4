/*
Package dispatcher accepts client connections on the service socket and hands
each accepted connection to a separate worker process.

The dispatcher never looks at the requests themselves: it only accepts, starts
a worker for the connection, and closes its own copy of the connection. Workers
get reaped in the background, logging their exit status, so the accept loop
never blocks on workers.

[Listen] creates the service socket: a SOCK_SEQPACKET unix domain socket, so
that each request and response is a single message, with the socket file's
permissions allowing any local user to connect. [Detach] moves a service into
the background, handing it the already bound listener.
*/
package dispatcher
