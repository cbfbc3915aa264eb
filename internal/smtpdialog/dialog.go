// Package smtpdialog speaks the SMTP probe conversation used to verify a
// mailbox without sending mail: banner, EHLO/HELO, a RCPT for a random
// local part (catch-all detection), RSET, then the RCPT for the real
// address, and QUIT.
package smtpdialog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Config configures a probe dialog.
type Config struct {
	// HeloDomain is the domain sent in EHLO/HELO. Required.
	HeloDomain string
	// MailFrom is the address sent in MAIL FROM. Required.
	MailFrom string
	// ConnectTimeout is the maximum time for the TCP connection. Default: 5s.
	ConnectTimeout time.Duration
	// CommandTimeout is the maximum response time per SMTP command. Default: 5s.
	CommandTimeout time.Duration
	// Dial is injectable for testing. Defaults to net.DialTimeout.
	Dial func(network, address string, timeout time.Duration) (net.Conn, error)
}

// Outcome is the raw result of one probe dialog against one host:port.
type Outcome struct {
	// RealCode is the reply code for RCPT TO the real address.
	RealCode int
	// RealMessage is the reply text for the real RCPT.
	RealMessage string
	// RandomCode is the reply code for RCPT TO the random address
	// (catch-all heuristic: a positive class here means the server
	// accepts anything). Zero when the random step could not run.
	RandomCode int
	// Host and Port identify the server that answered.
	Host string
	Port string
}

func (cfg Config) withDefaults() Config {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 5 * time.Second
	}
	if cfg.Dial == nil {
		cfg.Dial = net.DialTimeout
	}
	return cfg
}

// Probe runs the full dialog against host:port for email, using
// randomLocal@<domain-of-email> as the catch-all canary. Every network
// step is bounded by both the command timeout and ctx's deadline; the
// socket is closed on all exit paths.
func Probe(ctx context.Context, cfg Config, host, port, email, randomLocal string) (Outcome, error) {
	cfg = cfg.withDefaults()
	out := Outcome{Host: host, Port: port}

	if cfg.HeloDomain == "" || cfg.MailFrom == "" {
		return out, errors.New("smtpdialog: HeloDomain and MailFrom are required")
	}

	atIdx := strings.LastIndex(email, "@")
	if atIdx < 1 {
		return out, fmt.Errorf("smtpdialog: malformed address %q", email)
	}
	domain := email[atIdx+1:]

	address := net.JoinHostPort(host, port)
	netConn, err := cfg.Dial("tcp", address, cfg.ConnectTimeout)
	if err != nil {
		return out, fmt.Errorf("connect to %s: %w", address, err)
	}
	defer netConn.Close()

	c := &conn{
		netConn: netConn,
		reader:  bufio.NewReader(netConn),
		writer:  bufio.NewWriter(netConn),
		timeout: cfg.CommandTimeout,
		ctx:     ctx,
	}

	// Banner
	code, _, err := c.read()
	if err != nil {
		return out, fmt.Errorf("read banner: %w", err)
	}
	if code != 220 {
		return out, fmt.Errorf("unexpected banner code %d", code)
	}

	// EHLO, falling back to HELO for old servers
	code, _, err = c.command("EHLO " + cfg.HeloDomain)
	if err != nil {
		return out, fmt.Errorf("EHLO: %w", err)
	}
	if code != 250 {
		code, _, err = c.command("HELO " + cfg.HeloDomain)
		if err != nil {
			return out, fmt.Errorf("HELO: %w", err)
		}
		if code != 250 {
			return out, fmt.Errorf("HELO rejected with %d", code)
		}
	}

	// First transaction: the random canary address
	if code, _, err = c.command("MAIL FROM:<" + cfg.MailFrom + ">"); err != nil {
		return out, fmt.Errorf("MAIL FROM: %w", err)
	} else if code >= 400 {
		c.quit()
		return out, fmt.Errorf("MAIL FROM rejected with %d", code)
	}

	randomCode, _, err := c.command("RCPT TO:<" + randomLocal + "@" + domain + ">")
	if err != nil {
		return out, fmt.Errorf("RCPT (canary): %w", err)
	}
	out.RandomCode = randomCode

	// Fresh transaction for the real address
	if code, _, err = c.command("RSET"); err != nil {
		return out, fmt.Errorf("RSET: %w", err)
	} else if code >= 400 {
		c.quit()
		return out, fmt.Errorf("RSET rejected with %d", code)
	}

	if code, _, err = c.command("MAIL FROM:<" + cfg.MailFrom + ">"); err != nil {
		return out, fmt.Errorf("MAIL FROM: %w", err)
	} else if code >= 400 {
		c.quit()
		return out, fmt.Errorf("MAIL FROM rejected with %d", code)
	}

	realCode, realMsg, err := c.command("RCPT TO:<" + email + ">")
	if err != nil {
		return out, fmt.Errorf("RCPT: %w", err)
	}
	out.RealCode = realCode
	out.RealMessage = realMsg

	c.quit()
	return out, nil
}

type conn struct {
	netConn net.Conn
	reader  *bufio.Reader
	writer  *bufio.Writer
	timeout time.Duration
	ctx     context.Context
}

// deadline bounds the next I/O by the command timeout and the context
// deadline, whichever comes first.
func (c *conn) deadline() error {
	if err := c.ctx.Err(); err != nil {
		return err
	}
	d := time.Now().Add(c.timeout)
	if ctxDeadline, ok := c.ctx.Deadline(); ok && ctxDeadline.Before(d) {
		d = ctxDeadline
	}
	return c.netConn.SetDeadline(d)
}

// command sends one SMTP command and reads the response.
func (c *conn) command(cmd string) (int, string, error) {
	if err := c.deadline(); err != nil {
		return 0, "", err
	}
	if _, err := c.writer.WriteString(cmd + "\r\n"); err != nil {
		return 0, "", err
	}
	if err := c.writer.Flush(); err != nil {
		return 0, "", err
	}
	return c.read()
}

// read reads a (possibly multi-line) SMTP response.
func (c *conn) read() (code int, full string, err error) {
	if err := c.deadline(); err != nil {
		return 0, "", err
	}
	var lines []string
	for {
		line, readErr := c.reader.ReadString('\n')
		if readErr != nil {
			return 0, "", fmt.Errorf("read SMTP response: %w", readErr)
		}
		line = strings.TrimRight(line, "\r\n")
		if len(line) < 3 {
			return 0, "", errors.New("SMTP response line too short")
		}
		lines = append(lines, line)
		// If the 4th character is not '-', this is the last line
		if len(line) < 4 || line[3] != '-' {
			break
		}
	}

	lastLine := lines[len(lines)-1]
	if _, err := fmt.Sscanf(lastLine[:3], "%d", &code); err != nil {
		return 0, "", fmt.Errorf("invalid SMTP response code %q: %w", lastLine[:3], err)
	}
	return code, strings.Join(lines, " | "), nil
}

// quit sends QUIT best-effort; errors are ignored.
func (c *conn) quit() {
	_ = c.netConn.SetDeadline(time.Now().Add(2 * time.Second))
	_, _ = c.writer.WriteString("QUIT\r\n")
	_ = c.writer.Flush()
}
