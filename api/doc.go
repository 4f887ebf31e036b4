/*
Package api defines the typed requests and responses exchanged between clients
and the checkpoint service. On the wire, these are the protobuf messages of the
CRIU RPC schema from [github.com/checkpoint-restore/go-criu/v7/rpc]; package
api maps them to and from Go types, where optional fields become [Optional]
values so that “not specified” never gets mistaken for “false” or “0”.

Currently, the only request is the [DumpRequest]. Responses mirror the type of
their request; an [ErrorResponse] can be sent in place of any other response.
*/
package api
