// Package marker recognises and decodes the magic_start/magic_commit
// marker comments that open and close an audit batch (spec §4.11).
package marker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Mode is the session mode selected by an enable-* marker key.
type Mode int

const (
	ModeCheck Mode = iota
	ModeExecute
	ModeSplit
	ModeQueryTree
)

func (m Mode) String() string {
	switch m {
	case ModeExecute:
		return "EXECUTE"
	case ModeSplit:
		return "SPLIT"
	case ModeQueryTree:
		return "QUERY_TREE"
	default:
		return "CHECK"
	}
}

// HostPort is a replica endpoint from the slave-hosts key.
type HostPort struct {
	Host string
	Port int
}

// Options is the decoded magic_start body.
type Options struct {
	Host           string
	Port           int
	User           string
	Password       string
	Mode           Mode
	Force          bool
	Backup         bool
	IgnoreWarnings bool
	SleepMs        int
	Replicas       []HostPort
}

// leadingComment matches the first C-style comment at the start of a
// statement, tolerating leading whitespace before it.
var leadingComment = regexp.MustCompile(`(?s)^\s*/\*(.*?)\*/`)

// LeadingComment returns the body of the first comment in text (without the
// /* */ delimiters) and the statement text with that comment stripped.
// ok is false when text does not begin with a comment.
func LeadingComment(text string) (body, rest string, ok bool) {
	m := leadingComment.FindStringSubmatchIndex(text)
	if m == nil {
		return "", text, false
	}
	body = text[m[2]:m[3]]
	rest = strings.TrimSpace(text[m[1]:])
	return body, rest, true
}

// IsMagicStart reports whether a comment body contains the magic_start
// sentinel (case-insensitive).
func IsMagicStart(body string) bool {
	return strings.Contains(strings.ToLower(body), "magic_start")
}

// IsMagicCommit reports whether a comment body contains the magic_commit
// sentinel (case-insensitive).
func IsMagicCommit(body string) bool {
	return strings.Contains(strings.ToLower(body), "magic_commit")
}

// Defaults supplies the global fallbacks used when a magic_start omits
// user/password (spec §4.11, config surface §6.5).
type Defaults struct {
	User     string
	Password string
	// DecryptPassword decodes an "AES:"-prefixed password using the
	// configured global key. On any failure the raw string is used
	// unchanged, per spec.
	DecryptPassword func(cipherBase64 string) (string, error)
}

// ParseStart decodes a magic_start comment body into Options. Unknown keys
// are ignored; the literal "magic_start" token is not itself a key=value
// pair and is skipped.
func ParseStart(body string, def Defaults) (*Options, error) {
	opt := &Options{Port: 3306}
	for _, raw := range strings.Split(body, ";") {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}
		if strings.EqualFold(token, "magic_start") {
			continue
		}
		if !strings.HasPrefix(token, "--") {
			continue
		}
		kv := strings.SplitN(token[2:], "=", 2)
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := ""
		if len(kv) == 2 {
			val = strings.TrimSpace(kv[1])
		}
		if err := applyKey(opt, key, val); err != nil {
			return nil, errors.Wrapf(err, "magic_start key %q", key)
		}
	}

	if opt.User == "" {
		opt.User = def.User
	}
	if opt.Password == "" {
		opt.Password = def.Password
	} else if strings.HasPrefix(opt.Password, "AES:") && def.DecryptPassword != nil {
		if plain, err := def.DecryptPassword(strings.TrimPrefix(opt.Password, "AES:")); err == nil {
			opt.Password = plain
		}
		// on failure, keep the raw (still-encoded) string unchanged, per spec.
	}
	return opt, nil
}

func applyKey(opt *Options, key, val string) error {
	switch key {
	case "host":
		opt.Host = val
	case "user":
		opt.User = val
	case "password":
		opt.Password = val
	case "port":
		p, err := strconv.Atoi(val)
		if err != nil {
			return errors.Wrap(err, "invalid port")
		}
		opt.Port = p
	case "enable-check":
		opt.Mode = ModeCheck
	case "enable-execute":
		opt.Mode = ModeExecute
	case "enable-split":
		opt.Mode = ModeSplit
	case "enable-query-tree":
		opt.Mode = ModeQueryTree
	case "enable-force":
		opt.Force = isTrue(val)
	case "enable-remote-backup":
		opt.Backup = isTrue(val)
	case "enable-ignore-warnings":
		opt.IgnoreWarnings = isTrue(val)
	case "sleep":
		ms, err := strconv.Atoi(val)
		if err != nil {
			return errors.Wrap(err, "invalid sleep")
		}
		opt.SleepMs = ms
	case "slave-hosts":
		hosts, err := parseSlaveHosts(val)
		if err != nil {
			return err
		}
		opt.Replicas = hosts
	default:
		// unrecognized keys are ignored, per spec.
	}
	return nil
}

func isTrue(v string) bool {
	return v == "" || v == "1" || strings.EqualFold(v, "true")
}

func parseSlaveHosts(val string) ([]HostPort, error) {
	if val == "" {
		return nil, nil
	}
	var hosts []HostPort
	for _, pair := range strings.Split(val, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid slave-hosts entry %q", pair)
		}
		port, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid slave-hosts port in %q", pair)
		}
		hosts = append(hosts, HostPort{Host: parts[0], Port: port})
	}
	return hosts, nil
}
