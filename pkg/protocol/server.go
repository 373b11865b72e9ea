package protocol

import (
	"context"
	"fmt"
	"net"
	"sync"

	"golang.org/x/crypto/ssh"

	"github.com/dpbroker/dpb/pkg/aggregator"
	"github.com/dpbroker/dpb/pkg/auth"
	"github.com/dpbroker/dpb/pkg/util"
)

// Credentials authenticates one management/control user by password.
// Swap the PasswordCallback this builds for a PublicKeyCallback in a
// deployment that issues keys instead; the session layer below doesn't
// care which authentication method established the connection.
type Credentials map[string]string

// Server accepts SSH connections and, once authenticated, frames the
// management/control protocol's JSON messages over each session
// channel's byte stream.
type Server struct {
	config   *ssh.ServerConfig
	broker   *aggregator.Broker
	checkers map[string]*auth.Checker
}

// NewServer builds a Server authenticating against creds with hostKey as
// its server identity, and dispatching authorized requests against
// broker. checkers maps network name to the auth.Checker enforcing that
// network's permission policy.
func NewServer(hostKey ssh.Signer, creds Credentials, broker *aggregator.Broker, checkers map[string]*auth.Checker) *Server {
	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if want, ok := creds[c.User()]; ok && want == string(password) {
				return &ssh.Permissions{Extensions: map[string]string{"user": c.User()}}, nil
			}
			return nil, fmt.Errorf("authentication rejected for %q", c.User())
		},
	}
	config.AddHostKey(hostKey)
	return &Server{config: config, broker: broker, checkers: checkers}
}

// Serve accepts connections on ln until ctx is cancelled or ln closes.
func (srv *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go srv.handleConn(conn)
	}
}

func (srv *Server) handleConn(conn net.Conn) {
	sshConn, chans, reqs, err := ssh.NewServerConn(conn, srv.config)
	if err != nil {
		util.WithField("remote", conn.RemoteAddr().String()).WithError(err).Warn("ssh handshake failed")
		conn.Close()
		return
	}
	defer sshConn.Close()
	go ssh.DiscardRequests(reqs)

	user := sshConn.Permissions.Extensions["user"]
	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "only session channels are supported")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			continue
		}
		go ssh.DiscardRequests(requests)
		go srv.serveSession(user, channel)
	}
}

func (srv *Server) serveSession(user string, channel ssh.Channel) {
	defer channel.Close()

	var outMu sync.Mutex
	session := newSession(user, srv.broker, srv.checkers, channel, &outMu)

	for {
		msg, err := readMessage(channel)
		if err != nil {
			return
		}
		resp := session.Dispatch(msg)
		outMu.Lock()
		err = writeMessage(channel, resp)
		outMu.Unlock()
		if err != nil {
			return
		}
	}
}
