package config

import "sync"

// Exec holds the execution-engine thresholds from spec §6.5.
type Exec struct {
	MaxThreadsRunning   int
	MaxReplicationDelay int // seconds; NULL on the replica is treated as exceeding this
	CheckReadOnly        bool
	ConnectTimeoutAudit  int // seconds
	ConnectTimeoutExec   int // seconds
	IOTimeoutAudit       int // seconds
	IOTimeoutExec        int // seconds
}

func DefaultExec() Exec {
	return Exec{
		MaxThreadsRunning:   1000,
		MaxReplicationDelay: 10,
		CheckReadOnly:       true,
		ConnectTimeoutAudit: 5,
		ConnectTimeoutExec:  10,
		IOTimeoutAudit:      30,
		IOTimeoutExec:       600,
	}
}

// Remote holds the defaults used when a magic_start omits credentials, plus
// the admin-surface secrets (spec §4.11, §4.10).
type Remote struct {
	DefaultUser     string
	DefaultPassword string
	AESKey          string
	OSCBinaryPath   string
}

func DefaultRemote() Remote {
	return Remote{
		DefaultUser:     "",
		DefaultPassword: "",
		AESKey:          "inception-gateway-default-key",
		OSCBinaryPath:   "",
	}
}

// Config is the single process-wide "module object" design note §9 calls
// for: every mutable global in one typed tree, constructed at startup and
// then read (and, for a handful of admin-mutable fields, written) behind a
// mutex.
type Config struct {
	mu sync.RWMutex

	Rules  Rules
	Exec   Exec
	Remote Remote

	auditLogPath string
}

func New() *Config {
	return &Config{
		Rules:  DefaultRules(),
		Exec:   DefaultExec(),
		Remote: DefaultRemote(),
	}
}

func (c *Config) AuditLogPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.auditLogPath
}

func (c *Config) SetAuditLogPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auditLogPath = path
}
