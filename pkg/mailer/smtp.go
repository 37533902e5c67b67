package mailer

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"github.com/wneessen/go-mail"

	"github.com/mailworker/mailworker/pkg/emailerror"
)

// SMTPConfig configures the production transport.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// UseSSL selects implicit TLS on connect; UseTLS selects STARTTLS.
	UseSSL bool
	UseTLS bool

	Timeout             time.Duration
	ValidateCertificate bool

	SenderEmail    string
	SenderName     string
	DefaultReplyTo string

	MaxConnections int
	PoolIdle       time.Duration
}

// SMTPTransport delivers envelopes over SMTP. Messages are composed with
// go-mail; the envelope itself is delivered over a raw SMTP dialog so
// reply codes stay visible for failure classification.
type SMTPTransport struct {
	config     SMTPConfig
	classifier *emailerror.Classifier
	// dialSlots bounds concurrent server connections when MaxConnections
	// is set.
	dialSlots chan struct{}
}

// NewSMTPTransport creates the production transport.
func NewSMTPTransport(config SMTPConfig) *SMTPTransport {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	t := &SMTPTransport{
		config:     config,
		classifier: emailerror.NewClassifier(),
	}
	if config.MaxConnections > 0 {
		t.dialSlots = make(chan struct{}, config.MaxConnections)
	}
	return t
}

// Send composes and delivers one envelope, bounded by the configured
// per-send timeout.
func (t *SMTPTransport) Send(ctx context.Context, env *Envelope) SendResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	if t.dialSlots != nil {
		select {
		case t.dialSlots <- struct{}{}:
			defer func() { <-t.dialSlots }()
		case <-ctx.Done():
			return t.failure(ctx.Err(), start)
		}
	}

	raw, err := t.compose(env)
	if err != nil {
		// Composition failures are input problems, never retryable.
		return SendResult{Disposition: DispositionPermanent, Err: err, Duration: time.Since(start)}
	}

	from := env.From
	if from == "" {
		from = t.config.SenderEmail
	}
	if err := t.deliver(ctx, from, env.Recipients(), raw); err != nil {
		return t.failure(err, start)
	}

	return SendResult{Disposition: DispositionOK, Duration: time.Since(start)}
}

func (t *SMTPTransport) failure(err error, start time.Time) SendResult {
	classified := t.classifier.Classify(err)
	disposition := DispositionTransient
	if classified != nil && !classified.Retryable() {
		disposition = DispositionPermanent
	}
	return SendResult{Disposition: disposition, Err: err, Duration: time.Since(start)}
}

// compose builds the MIME message with go-mail: alternative text/html
// bodies, inline parts embedded with their Content-ID, and regular
// attachments.
func (t *SMTPTransport) compose(env *Envelope) ([]byte, error) {
	msg := mail.NewMsg(mail.WithNoDefaultUserAgent())

	from := env.From
	fromName := env.FromName
	if from == "" {
		from = t.config.SenderEmail
		fromName = t.config.SenderName
	}
	if err := msg.FromFormat(fromName, from); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := msg.To(env.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	if len(env.CC) > 0 {
		if err := msg.Cc(env.CC...); err != nil {
			return nil, fmt.Errorf("invalid CC recipients: %w", err)
		}
	}
	if len(env.BCC) > 0 {
		if err := msg.Bcc(env.BCC...); err != nil {
			return nil, fmt.Errorf("invalid BCC recipients: %w", err)
		}
	}

	replyTo := env.ReplyTo
	if replyTo == "" {
		replyTo = t.config.DefaultReplyTo
	}
	if replyTo != "" {
		if err := msg.ReplyTo(replyTo); err != nil {
			return nil, fmt.Errorf("invalid reply-to address: %w", err)
		}
	}

	if env.MessageID != "" {
		msg.SetGenHeader("X-Message-ID", env.MessageID)
	}

	msg.Subject(env.Subject)
	if env.IsHTML {
		msg.SetBodyString(mail.TypeTextHTML, env.Body)
	} else {
		msg.SetBodyString(mail.TypeTextPlain, env.Body)
	}

	for i, part := range env.Parts {
		var fileOpts []mail.FileOption
		if part.ContentType != "" {
			fileOpts = append(fileOpts, mail.WithFileContentType(mail.ContentType(part.ContentType)))
		}
		if part.Inline {
			contentID := part.ContentID
			if contentID == "" {
				contentID = part.FileName
			}
			fileOpts = append(fileOpts, mail.WithFileContentID(contentID))
			if err := msg.EmbedReader(part.FileName, bytes.NewReader(part.Data), fileOpts...); err != nil {
				return nil, fmt.Errorf("part %d: failed to embed inline: %w", i, err)
			}
		} else {
			if err := msg.AttachReader(part.FileName, bytes.NewReader(part.Data), fileOpts...); err != nil {
				return nil, fmt.Errorf("part %d: failed to attach: %w", i, err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write message: %w", err)
	}
	return buf.Bytes(), nil
}

// Ping connects, greets and disconnects without sending. Credentials are
// exercised when configured so authentication problems surface in the
// health loop rather than mid-batch.
func (t *SMTPTransport) Ping(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", t.config.Host, t.config.Port)

	var client *gosmtp.Client
	var err error
	switch {
	case t.config.UseSSL:
		client, err = gosmtp.DialTLS(addr, t.tlsConfig())
	case t.config.UseTLS:
		client, err = gosmtp.DialStartTLS(addr, t.tlsConfig())
	default:
		client, err = gosmtp.Dial(addr)
	}
	if err != nil {
		return fmt.Errorf("smtp probe failed: %w", err)
	}
	defer client.Close()

	if t.config.Username != "" {
		auth := sasl.NewPlainClient("", t.config.Username, t.config.Password)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp probe auth failed: %w", err)
		}
	}
	if err := client.Noop(); err != nil {
		return fmt.Errorf("smtp probe noop failed: %w", err)
	}
	return client.Quit()
}

func (t *SMTPTransport) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName:         t.config.Host,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !t.config.ValidateCertificate,
	}
}

// smtpConnection wraps a server connection and provides line-level
// command sending. The raw dialog keeps the envelope free of the
// BODY=8BITMIME / SMTPUTF8 extensions that strict servers reject, and
// keeps reply codes visible for classification.
type smtpConnection struct {
	conn   net.Conn
	reader *bufio.Reader
}

func newSMTPConnection(conn net.Conn) *smtpConnection {
	return &smtpConnection{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

func (c *smtpConnection) readResponse() (int, string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return 0, "", err
	}
	if len(line) < 4 {
		return 0, "", fmt.Errorf("short response: %s", line)
	}
	code := 0
	if _, err := fmt.Sscanf(line[:3], "%d", &code); err != nil {
		return 0, "", fmt.Errorf("invalid response code: %s", line)
	}
	return code, strings.TrimSpace(line[4:]), nil
}

func (c *smtpConnection) readMultilineResponse() (int, error) {
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return 0, err
		}
		if len(line) < 4 {
			return 0, fmt.Errorf("short response: %s", line)
		}
		code := 0
		if _, err := fmt.Sscanf(line[:3], "%d", &code); err != nil {
			return 0, fmt.Errorf("invalid response code: %s", line)
		}
		// A space after the code marks the final line of the reply.
		if line[3] == ' ' {
			return code, nil
		}
	}
}

func (c *smtpConnection) sendCommand(cmd string) (int, string, error) {
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", cmd); err != nil {
		return 0, "", err
	}
	return c.readResponse()
}

func (c *smtpConnection) sendCommandMultiline(cmd string) (int, error) {
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", cmd); err != nil {
		return 0, err
	}
	return c.readMultilineResponse()
}

func (c *smtpConnection) Close() error {
	return c.conn.Close()
}

// deliver runs the SMTP dialog for one message.
func (t *SMTPTransport) deliver(ctx context.Context, from string, to []string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", t.config.Host, t.config.Port)

	dialer := &net.Dialer{Timeout: t.config.Timeout}
	var conn net.Conn
	var err error
	if t.config.UseSSL {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: t.tlsConfig()}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	// The dialog is bounded by the context deadline (the per-send timeout);
	// cancellation without a deadline is not observed once connected.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	smtpConn := newSMTPConnection(conn)
	defer smtpConn.Close()

	code, err := smtpConn.readMultilineResponse()
	if err != nil {
		return fmt.Errorf("failed to read greeting: %w", err)
	}
	if code != 220 {
		return fmt.Errorf("unexpected greeting code: %d", code)
	}

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "localhost"
	}
	code, err = smtpConn.sendCommandMultiline(fmt.Sprintf("EHLO %s", hostname))
	if err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if code != 250 {
		return fmt.Errorf("EHLO rejected with code: %d", code)
	}

	if t.config.UseTLS && !t.config.UseSSL {
		code, _, err = smtpConn.sendCommand("STARTTLS")
		if err != nil {
			return fmt.Errorf("STARTTLS command failed: %w", err)
		}
		if code != 220 {
			return fmt.Errorf("STARTTLS rejected with code: %d", code)
		}

		tlsConn := tls.Client(conn, t.tlsConfig())
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return fmt.Errorf("tls handshake failed: %w", err)
		}
		if deadline, ok := ctx.Deadline(); ok {
			_ = tlsConn.SetDeadline(deadline)
		}

		smtpConn = newSMTPConnection(tlsConn)
		defer smtpConn.Close()

		code, err = smtpConn.sendCommandMultiline(fmt.Sprintf("EHLO %s", hostname))
		if err != nil {
			return fmt.Errorf("EHLO after TLS failed: %w", err)
		}
		if code != 250 {
			return fmt.Errorf("EHLO after TLS rejected with code: %d", code)
		}
	}

	if t.config.Username != "" && t.config.Password != "" {
		authString := fmt.Sprintf("\x00%s\x00%s", t.config.Username, t.config.Password)
		encoded := base64.StdEncoding.EncodeToString([]byte(authString))
		code, _, err = smtpConn.sendCommand(fmt.Sprintf("AUTH PLAIN %s", encoded))
		if err != nil {
			return fmt.Errorf("AUTH failed: %w", err)
		}
		if code != 235 {
			return fmt.Errorf("authentication failed with code: %d", code)
		}
	}

	code, _, err = smtpConn.sendCommand(fmt.Sprintf("MAIL FROM:<%s>", from))
	if err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if code != 250 {
		return fmt.Errorf("MAIL FROM rejected with code: %d", code)
	}

	for _, recipient := range to {
		if recipient == "" {
			continue
		}
		code, _, err = smtpConn.sendCommand(fmt.Sprintf("RCPT TO:<%s>", recipient))
		if err != nil {
			return fmt.Errorf("RCPT TO failed for %s: %w", recipient, err)
		}
		if code != 250 && code != 251 {
			return fmt.Errorf("RCPT TO rejected for %s with code: %d", recipient, code)
		}
	}

	code, _, err = smtpConn.sendCommand("DATA")
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if code != 354 {
		return fmt.Errorf("DATA rejected with code: %d", code)
	}

	if _, err := smtpConn.conn.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if _, err := fmt.Fprintf(smtpConn.conn, "\r\n.\r\n"); err != nil {
		return fmt.Errorf("failed to write message terminator: %w", err)
	}

	code, _, err = smtpConn.readResponse()
	if err != nil {
		return fmt.Errorf("failed to read DATA response: %w", err)
	}
	if code != 250 {
		return fmt.Errorf("message rejected with code: %d", code)
	}

	_, _, _ = smtpConn.sendCommand("QUIT")
	return nil
}
