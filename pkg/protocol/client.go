package protocol

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/ssh"
)

// Client is the dpbctl side of the management/control protocol: one SSH
// session channel carrying length-framed JSON request/reply pairs,
// matching the framing serveSession expects on the broker.
type Client struct {
	conn    *ssh.Client
	channel ssh.Channel

	mu  sync.Mutex
	txn int
}

// Dial authenticates to addr as user/password and opens the single
// session channel the protocol multiplexes every command over.
func Dial(addr, user, password string) (*Client, error) {
	config := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}
	conn, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	channel, requests, err := conn.OpenChannel("session", nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening session channel: %w", err)
	}
	go ssh.DiscardRequests(requests)
	return &Client{conn: conn, channel: channel}, nil
}

// Close releases the underlying SSH connection.
func (c *Client) Close() error {
	c.channel.Close()
	return c.conn.Close()
}

// Send issues one request and blocks for its matching reply. Calls are
// serialized: the protocol is request/reply over a single channel, with
// no client-side pipelining.
func (c *Client) Send(msgType string, fields map[string]interface{}) (Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.txn++
	req := Message{"type": msgType, "txn": fmt.Sprintf("%d", c.txn)}
	for k, v := range fields {
		req[k] = v
	}
	if err := writeMessage(c.channel, req); err != nil {
		return nil, fmt.Errorf("sending %s: %w", msgType, err)
	}
	resp, err := readMessage(c.channel)
	if err != nil {
		return nil, fmt.Errorf("reading reply to %s: %w", msgType, err)
	}
	if tag, ok := resp["error"].(string); ok {
		detail, _ := resp["message"].(string)
		return resp, fmt.Errorf("%s: %s", tag, detail)
	}
	return resp, nil
}

// Watch issues a "watch" request and then reads status events pushed
// for the rest of the channel's lifetime, delivering each to fn until
// the channel closes or fn returns false.
func (c *Client) Watch(serviceID int64, fn func(Message) bool) error {
	if _, err := c.Send("watch", nil); err != nil {
		return err
	}
	for {
		msg, err := readMessage(c.channel)
		if err != nil {
			return err
		}
		if !fn(msg) {
			return nil
		}
	}
}
