/*
cr-service is a checkpoint service: it listens on a unix domain socket for dump
requests from local processes, and has the CRIU checkpoint engine dump the
requested processes into image directories of the requesting processes.

Start the service in the foreground:

	cr-service serve --address /var/run/criu_service.socket

or in the background using “--daemon”. Clients then send dump requests, such as:

	cr-service dump --leave-running /tmp/images

Service-wide defaults and policies can be set in a YAML configuration file
passed using “--config”.
*/
package main
