/*
Package imgdir resolves the image directory of a dump request without ever
trusting a path supplied by a client.

A client instead passes the number of a file descriptor in its own file
descriptor table, referencing an open directory. [Enter] then changes the
current working directory to “/proc/<peer-pid>/fd/<fd>”, so the kernel resolves
the descriptor number in the client's file descriptor table. The service thus
can only reach directories the client already legitimately has open.

[Open] finally checks that the current working directory is usable as an image
store and returns it as a [Dir] that the checkpoint engine writes its images
into.
*/
package imgdir
