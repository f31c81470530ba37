// Package config loads a rank's static configuration: the hostfile
// listing every rank's address (a YAML file, since each rank is a
// fixed, known peer rather than a dynamically-registering node) and
// the assembly's tunables (K, batch size, load factor).
//
// Configuration is resolved the way torua's cmd/node does it —
// environment variables with defaults, read once at startup — except
// the peer list itself comes from the hostfile rather than a
// coordinator registration handshake, since an SPMD run has no
// coordinator to register with.
package config
