package notify

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"mail-auto-ticketing/internal/models"

	"github.com/wneessen/go-mail"
)

// relay is a minimal SMTP server that records what it accepts
type relay struct {
	mu         sync.Mutex
	rejectRcpt bool
	auth       string
	rcpts      []string
	data       string
}

func startRelay(t *testing.T, r *relay) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go r.serve(conn)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func (r *relay) serve(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	rd := bufio.NewReader(conn)
	reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

	reply("220 localhost ESMTP ready")
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		cmd := strings.ToUpper(line)

		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			reply("250-localhost")
			reply("250-AUTH PLAIN")
			reply("250 8BITMIME")
		case strings.HasPrefix(cmd, "AUTH PLAIN"):
			fields := strings.Fields(line)
			if len(fields) == 3 {
				decoded, _ := base64.StdEncoding.DecodeString(fields[2])
				r.mu.Lock()
				r.auth = string(decoded)
				r.mu.Unlock()
			}
			reply("235 2.7.0 Authentication successful")
		case strings.HasPrefix(cmd, "RCPT TO"):
			if r.rejectRcpt {
				reply("550 5.1.1 Mailbox unavailable")
				continue
			}
			r.mu.Lock()
			r.rcpts = append(r.rcpts, line)
			r.mu.Unlock()
			reply("250 OK")
		case cmd == "DATA":
			reply("354 End data with <CR><LF>.<CR><LF>")
			var b strings.Builder
			for {
				l, err := rd.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				b.WriteString(l)
			}
			r.mu.Lock()
			r.data = b.String()
			r.mu.Unlock()
			reply("250 OK queued")
		case cmd == "QUIT":
			reply("221 Bye")
			return
		default:
			reply("250 OK")
		}
	}
}

func testSMTPChannel(t *testing.T, r *relay) *SMTPChannel {
	t.Helper()
	host, port := startRelay(t, r)

	ch, err := NewSMTPChannel(models.SMTPConfig{
		Host:     host,
		Port:     port,
		Username: "support@example.com",
		Password: "app-password",
		From:     "support@example.com",
	}, 5*time.Second)
	if err != nil {
		t.Fatalf("NewSMTPChannel() error: %v", err)
	}
	ch.tlsPolicy = mail.NoTLS
	return ch
}

func TestSMTPChannel(t *testing.T) {
	r := &relay{}
	ch := testSMTPChannel(t, r)
	c, _ := RenderConfirmation("Printer broken", "T-1", "support@example.com")

	if err := ch.Send(context.Background(), "jane@ex.com", c); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.auth != "\x00support@example.com\x00app-password" {
		t.Errorf("auth = %q", r.auth)
	}
	if len(r.rcpts) != 1 || !strings.Contains(r.rcpts[0], "jane@ex.com") {
		t.Errorf("recipients = %v", r.rcpts)
	}
	if !strings.Contains(r.data, c.Title) {
		t.Errorf("message data missing subject:\n%s", r.data)
	}
}

func TestSMTPChannel_RelayRejects(t *testing.T) {
	ch := testSMTPChannel(t, &relay{rejectRcpt: true})
	c, _ := RenderConfirmation("Printer broken", "T-1", "")

	if err := ch.Send(context.Background(), "jane@ex.com", c); !errors.Is(err, ErrChannel) {
		t.Errorf("Send() error = %v, want ErrChannel", err)
	}
}

func TestSMTPChannel_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	ch, _ := NewSMTPChannel(models.SMTPConfig{Host: "127.0.0.1", Port: port, Username: "u", Password: "p", From: "a@b.c"}, time.Second)
	c, _ := RenderConfirmation("Hi", "T-1", "")

	if err := ch.Send(context.Background(), "jane@ex.com", c); !errors.Is(err, ErrChannel) {
		t.Errorf("Send() error = %v, want ErrChannel", err)
	}
}

func TestNewSMTPChannel_NotConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.SMTPConfig
	}{
		{name: "Missing host", cfg: models.SMTPConfig{Username: "u", Password: "p", From: "a@b.c"}},
		{name: "Missing password", cfg: models.SMTPConfig{Host: "smtp.test.com", Username: "u", From: "a@b.c"}},
		{name: "Missing sender", cfg: models.SMTPConfig{Host: "smtp.test.com", Username: "u", Password: "p"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSMTPChannel(tt.cfg, 0); !errors.Is(err, ErrNotConfigured) {
				t.Errorf("NewSMTPChannel() error = %v, want ErrNotConfigured", err)
			}
		})
	}
}
