package stomp

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// STOMP 1.2 client frame commands
const (
	CmdConnect     = "CONNECT"
	CmdSend        = "SEND"
	CmdSubscribe   = "SUBSCRIBE"
	CmdUnsubscribe = "UNSUBSCRIBE"
	CmdDisconnect  = "DISCONNECT"
)

// STOMP 1.2 server frame commands
const (
	CmdConnected = "CONNECTED"
	CmdMessage   = "MESSAGE"
	CmdReceipt   = "RECEIPT"
	CmdError     = "ERROR"
)

// Well-known header names
const (
	HdrAcceptVersion = "accept-version"
	HdrHost          = "host"
	HdrHeartBeat     = "heart-beat"
	HdrDestination   = "destination"
	HdrID            = "id"
	HdrSubscription  = "subscription"
	HdrContentType   = "content-type"
	HdrContentLength = "content-length"
	HdrMessage       = "message"
	HdrAuthorization = "Authorization"
)

var (
	ErrMalformedFrame = errors.New("stomp: malformed frame")
	ErrEmptyCommand   = errors.New("stomp: empty command")
)

// Frame is a single STOMP frame: a command, a header block and an optional
// body terminated by a NUL octet on the wire.
type Frame struct {
	Command string
	Headers map[string]string
	Body    []byte
}

// NewFrame builds a frame with the given command and alternating
// header key/value pairs.
func NewFrame(command string, headers ...string) *Frame {
	f := &Frame{Command: command, Headers: make(map[string]string, len(headers)/2)}
	for i := 0; i+1 < len(headers); i += 2 {
		f.Headers[headers[i]] = headers[i+1]
	}
	return f
}

// Header returns the value of a header, or "" when absent.
func (f *Frame) Header(key string) string {
	return f.Headers[key]
}

// IsHeartbeat reports whether the frame is a lone end-of-line keepalive
// rather than a real frame.
func (f *Frame) IsHeartbeat() bool {
	return f.Command == ""
}

// Marshal renders the frame in STOMP 1.2 wire format. Headers are written
// in sorted key order so output is deterministic. The body, when present,
// is preceded by a content-length header.
func (f *Frame) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteString(f.Command)
	buf.WriteByte('\n')

	escape := headerEscapingApplies(f.Command)
	keys := make([]string, 0, len(f.Headers))
	for k := range f.Headers {
		if k == HdrContentLength {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := f.Headers[k]
		if escape {
			k, v = escapeHeader(k), escapeHeader(v)
		}
		buf.WriteString(k)
		buf.WriteByte(':')
		buf.WriteString(v)
		buf.WriteByte('\n')
	}
	if len(f.Body) > 0 {
		buf.WriteString(HdrContentLength)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(len(f.Body)))
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)
	return buf.Bytes()
}

// Unmarshal parses a single frame from raw wire data. A lone EOL yields a
// heartbeat frame with an empty command. When a content-length header is
// present the body is read to exactly that length; otherwise it runs to the
// terminating NUL.
func Unmarshal(data []byte) (*Frame, error) {
	// Heartbeat: a bare EOL with nothing else.
	trimmed := bytes.TrimLeft(data, "\r\n")
	if len(trimmed) == 0 {
		return &Frame{}, nil
	}
	data = trimmed

	headerEnd := bytes.Index(data, []byte("\n\n"))
	sepLen := 2
	if crlf := bytes.Index(data, []byte("\r\n\r\n")); crlf != -1 && (headerEnd == -1 || crlf < headerEnd) {
		headerEnd = crlf
		sepLen = 4
	}
	if headerEnd == -1 {
		return nil, fmt.Errorf("%w: missing header terminator", ErrMalformedFrame)
	}

	lines := strings.Split(string(data[:headerEnd]), "\n")
	command := strings.TrimRight(lines[0], "\r")
	if command == "" {
		return nil, ErrEmptyCommand
	}

	f := &Frame{Command: command, Headers: make(map[string]string, len(lines)-1)}
	escape := headerEscapingApplies(command)
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			return nil, fmt.Errorf("%w: header %q has no colon", ErrMalformedFrame, line)
		}
		k, v := line[:idx], line[idx+1:]
		if escape {
			var err error
			if k, err = unescapeHeader(k); err != nil {
				return nil, err
			}
			if v, err = unescapeHeader(v); err != nil {
				return nil, err
			}
		}
		// First occurrence wins per the STOMP spec.
		if _, ok := f.Headers[k]; !ok {
			f.Headers[k] = v
		}
	}

	body := data[headerEnd+sepLen:]
	if cl := f.Headers[HdrContentLength]; cl != "" {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 || n > len(body) {
			return nil, fmt.Errorf("%w: bad content-length %q", ErrMalformedFrame, cl)
		}
		body = body[:n]
	} else if idx := bytes.IndexByte(body, 0); idx != -1 {
		body = body[:idx]
	}
	if len(body) > 0 {
		f.Body = append([]byte(nil), body...)
	}
	return f, nil
}

// headerEscapingApplies reports whether the command's headers use the 1.2
// escape sequences. CONNECT and CONNECTED are exempt for 1.0 compatibility.
func headerEscapingApplies(command string) bool {
	return command != CmdConnect && command != CmdConnected
}

var headerEscaper = strings.NewReplacer(
	`\`, `\\`,
	"\r", `\r`,
	"\n", `\n`,
	":", `\c`,
)

func escapeHeader(s string) string {
	return headerEscaper.Replace(s)
}

func unescapeHeader(s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", fmt.Errorf("%w: dangling escape", ErrMalformedFrame)
		}
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 'r':
			b.WriteByte('\r')
		case 'n':
			b.WriteByte('\n')
		case 'c':
			b.WriteByte(':')
		default:
			return "", fmt.Errorf("%w: unknown escape \\%c", ErrMalformedFrame, s[i])
		}
	}
	return b.String(), nil
}
