/*
Package criumsg serializes and deserializes service messages in their protobuf
wire format, as defined by the CRIU RPC schema.

There is no additional message framing: one message is sent using exactly one
write and received using exactly one read, relying on the message boundaries
preserved by SOCK_SEQPACKET unix domain sockets. A message must not be larger
than [MaxMessageSize].
*/
package criumsg
