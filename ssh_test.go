package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"testing"

	"golang.org/x/crypto/ssh"
)

func startSSH(t *testing.T, auth *Auth) (addr string, session *Session) {
	t.Helper()
	session = NewSession(testConfig(), testLogger(), nil)
	srv, err := NewSSHServer(session, auth, "", testLogger())
	if err != nil {
		t.Fatalf("ssh server: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx, ln)
	t.Cleanup(cancel)
	return ln.Addr().String(), session
}

type sshShell struct {
	client *ssh.Client
	stdin  io.WriteCloser
	out    *bufio.Reader
}

func dialShell(t *testing.T, addr string, cfg *ssh.ClientConfig) *sshShell {
	t.Helper()
	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	sess, err := client.NewSession()
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		t.Fatal(err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.Shell(); err != nil {
		t.Fatalf("shell: %v", err)
	}
	return &sshShell{client: client, stdin: stdin, out: bufio.NewReader(stdout)}
}

func (s *sshShell) send(t *testing.T, line string) Result {
	t.Helper()
	if _, err := io.WriteString(s.stdin, line+"\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err := s.out.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var res Result
	if err := json.Unmarshal(resp, &res); err != nil {
		t.Fatalf("bad result %q: %v", resp, err)
	}
	return res
}

func TestSSHCommands(t *testing.T) {
	addr, _ := startSSH(t, NewAuth("", ""))
	sh := dialShell(t, addr, &ssh.ClientConfig{
		User:            "pilot",
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	})

	res := sh.send(t, `{"action":"shoot"}`)
	if res.Status != StatusOK {
		t.Errorf("expected ok, got %s (%s)", res.Status, res.Error)
	}
	if res.State.Lives != MaxLives {
		t.Errorf("expected state in result, got lives %d", res.State.Lives)
	}

	res = sh.send(t, `{"action":"barrel_roll"}`)
	if res.Status != StatusError {
		t.Errorf("expected error for unknown action, got %s", res.Status)
	}

	res = sh.send(t, `{not json`)
	if res.Status != StatusError || res.Error != "malformed command" {
		t.Errorf("expected malformed command error, got %+v", res)
	}
}

func TestSSHPasswordAuth(t *testing.T) {
	addr, _ := startSSH(t, NewAuth("", testHash(t, "letmein")))

	_, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            "pilot",
		Auth:            []ssh.AuthMethod{ssh.Password("wrong")},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	})
	if err == nil {
		t.Fatal("expected wrong password to be rejected")
	}

	sh := dialShell(t, addr, &ssh.ClientConfig{
		User:            "pilot",
		Auth:            []ssh.AuthMethod{ssh.Password("letmein")},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	})
	if res := sh.send(t, `{"action":"accelerate"}`); res.Status != StatusOK {
		t.Errorf("expected ok, got %s", res.Status)
	}
}
