package main

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"golang.org/x/crypto/ssh"
)

// SSHServer accepts players over SSH. Each session channel carries one JSON
// command per line and gets one JSON result per line back.
type SSHServer struct {
	config  *ssh.ServerConfig
	session *Session
	log     *Logger

	mu    sync.Mutex
	conns map[*ssh.ServerConn]struct{}
}

// NewSSHServer creates an SSH transport for session. With an empty
// hostKeyPath an ephemeral ed25519 key is generated.
func NewSSHServer(session *Session, auth *Auth, hostKeyPath string, log *Logger) (*SSHServer, error) {
	log = log.Component("ssh")
	cfg := &ssh.ServerConfig{}
	if len(auth.passHash) == 0 {
		cfg.NoClientAuth = true
	} else {
		cfg.PasswordCallback = func(meta ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if auth.allow(hostOf(meta.RemoteAddr())) && auth.CheckPassword(string(password)) {
				return &ssh.Permissions{Extensions: map[string]string{"player": meta.User()}}, nil
			}
			return nil, ErrBadPassword
		}
	}

	signer, err := loadHostKey(hostKeyPath)
	if err != nil {
		return nil, err
	}
	cfg.AddHostKey(signer)

	return &SSHServer{
		config:  cfg,
		session: session,
		log:     log,
		conns:   make(map[*ssh.ServerConn]struct{}),
	}, nil
}

func hostOf(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

func loadHostKey(path string) (ssh.Signer, error) {
	if path == "" {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate host key: %w", err)
		}
		return ssh.NewSignerFromKey(priv)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read host key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("parse host key: %w", err)
	}
	return signer, nil
}

// Serve accepts connections on ln until ctx is done or ln fails
func (s *SSHServer) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
		s.closeAll()
	}()

	s.log.Info("ssh listening", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *SSHServer) handleConn(nc net.Conn) {
	sconn, chans, reqs, err := ssh.NewServerConn(nc, s.config)
	if err != nil {
		s.log.Debug("handshake failed", "remote", nc.RemoteAddr().String(), "error", err)
		nc.Close()
		return
	}
	s.track(sconn, true)
	defer s.track(sconn, false)

	log := s.log.With("remote", sconn.RemoteAddr().String(), "user", sconn.User())
	log.Info("ssh client connected")
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			newCh.Reject(ssh.UnknownChannelType, "only session channels are supported")
			continue
		}
		ch, requests, err := newCh.Accept()
		if err != nil {
			log.Warn("accept channel", "error", err)
			continue
		}
		go func(in <-chan *ssh.Request) {
			for req := range in {
				switch req.Type {
				case "shell", "pty-req", "exec":
					req.Reply(true, nil)
				default:
					req.Reply(false, nil)
				}
			}
		}(requests)
		go s.serveChannel(ch, sconn, log)
	}
	log.Info("ssh client disconnected")
}

// serveChannel runs the line protocol on one channel
func (s *SSHServer) serveChannel(ch ssh.Channel, sconn *ssh.ServerConn, log *Logger) {
	defer ch.Close()
	eng := s.session.Engine
	enc := json.NewEncoder(ch)

	scanner := bufio.NewScanner(ch)
	scanner.Buffer(make([]byte, 0, maxMessageSize), maxMessageSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var cmd Command
		if err := json.Unmarshal(line, &cmd); err != nil {
			enc.Encode(Result{Status: StatusError, Error: "malformed command", State: eng.Snapshot()})
			continue
		}
		if err := enc.Encode(eng.ProcessCommand(cmd)); err != nil {
			return
		}
		if cmd.Action == ActionQuit {
			sconn.Close()
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Debug("ssh read", "error", err)
	}
}

func (s *SSHServer) track(c *ssh.ServerConn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

func (s *SSHServer) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}
