package main

import (
	"crypto/ed25519"
	"crypto/rand"

	"github.com/dpbroker/dpb/pkg/util"
)

// loadOrGenerateHostKey returns the SSH host key for the management/control
// listener. It always generates an ephemeral ed25519 key for the life of
// the process; no flag or file supplies a fixed key, so every restart
// changes the host key clients see.
func loadOrGenerateHostKey() ed25519.PrivateKey {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		util.Fatalf("generating SSH host key: %v", err)
	}
	return priv
}
