/*
Package uds wraps connected unix domain sockets of type SOCK_SEQPACKET, which
preserve message boundaries: each write is received by exactly one read, so no
additional message framing is necessary.

Additionally, package uds resolves the kernel-attested credentials of the
connected peer (SO_PEERCRED) as well as the inode number identifying a
connection. Neither can be faked by the peer.

# Trivia

“[UDS]” is short for “unix domain socket”.

[UDS]: https://en.wikipedia.org/wiki/Unix_domain_socket
*/
package uds
