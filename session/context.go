package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hanchuanchuan/goinception-gateway/marker"
)

// Profile is the detected remote server flavor (spec §3, §4.5).
type Profile struct {
	IsTiDB bool
	Major  int
	Minor  int
}

// BatchSchema is the virtual (db, table) -> columns overlay accumulated
// from successful CREATE/ALTER audits within one batch (spec §4.4).
type BatchSchema struct {
	Tables    map[string]map[string]bool // "db.table" -> lower(column) -> true
	Databases map[string]bool
	Altered   map[string]bool // "db.table" seen in a prior ALTER this batch
}

func NewBatchSchema() *BatchSchema {
	return &BatchSchema{
		Tables:    make(map[string]map[string]bool),
		Databases: make(map[string]bool),
		Altered:   make(map[string]bool),
	}
}

// TreeRecord is one entry of the query-tree cache (spec §3).
type TreeRecord struct {
	ID   int
	SQL  string
	Tree string // JSON document, spec §4.7
}

// SplitGroup is one merged statement group (spec §4.8).
type SplitGroup struct {
	ID      int
	SQL     string
	DDLFlag int
	DB      string
	Table   string
	DDL     bool
}

// Snapshot is the cached (threads_running, max_replication_delay) the
// execution engine refreshes each wait-for-ready iteration (spec §3).
type Snapshot struct {
	ThreadsRunning      int
	MaxReplicationDelay int // -1 means unknown/NULL
}

// Context is one session's mutable state (spec §3 "Session context").
// Start fills it on magic_start and Reset clears its batch state on
// magic_commit or connection teardown.
type Context struct {
	mu sync.Mutex

	ConnectionID uint64
	UUID         string

	Active bool

	Host     string
	Port     int
	User     string
	Password string
	Replicas []marker.HostPort

	Mode           marker.Mode
	Force          bool
	Backup         bool
	IgnoreWarnings bool
	SleepMs        int

	Profile Profile

	StartedAt time.Time

	RemoteThreadID  uint32
	RemoteConnFailed bool
	Killed          bool
	ForceKilled     bool

	Snapshot Snapshot

	Statements  []*Statement
	SplitGroups []*SplitGroup
	Trees       []*TreeRecord

	Batch *BatchSchema

	CurrentDB string

	nextID int
}

func NewContext(connID uint64) *Context {
	u, _ := uuid.NewUUID()
	return &Context{
		ConnectionID: connID,
		UUID:         u.String(),
		Batch:        NewBatchSchema(),
	}
}

// Start transitions idle -> active on a magic_start (spec §4.1).
func (c *Context) Start(opt *marker.Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Active = true
	c.Host = opt.Host
	c.Port = opt.Port
	c.User = opt.User
	c.Password = opt.Password
	c.Replicas = opt.Replicas
	c.Mode = opt.Mode
	c.Force = opt.Force
	c.Backup = opt.Backup
	c.IgnoreWarnings = opt.IgnoreWarnings
	c.SleepMs = opt.SleepMs
	c.StartedAt = time.Now()
	c.Statements = nil
	c.SplitGroups = nil
	c.Trees = nil
	c.Batch = NewBatchSchema()
	c.CurrentDB = ""
	c.nextID = 0
	c.Killed = false
	c.ForceKilled = false
	c.RemoteThreadID = 0
	c.RemoteConnFailed = false
}

// Reset empties the statement/split/tree caches and the batch schema,
// clears the kill flags and remote thread id, and marks the context
// inactive, per magic_commit/connection-teardown (spec §3 lifecycles, §8
// "after magic_commit the caches are empty"). Connection parameters, mode,
// options and CurrentDB are left until the next Start overwrites them.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Active = false
	c.Statements = nil
	c.SplitGroups = nil
	c.Trees = nil
	c.Batch = NewBatchSchema()
	c.nextID = 0
	c.Killed = false
	c.ForceKilled = false
	c.RemoteThreadID = 0
	c.RemoteConnFailed = false
}

// NextStatement creates and appends a new statement record with the next
// monotonically assigned id (spec §3).
func (c *Context) NextStatement(text string) *Statement {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	stmt := &Statement{ID: c.nextID, OriginalText: text}
	c.Statements = append(c.Statements, stmt)
	return stmt
}

func (c *Context) NextSplitGroup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.SplitGroups) + 1
}

func (c *Context) AppendSplitGroup(g *SplitGroup) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SplitGroups = append(c.SplitGroups, g)
}

func (c *Context) AppendTree(t *TreeRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Trees = append(c.Trees, t)
}

// SetKilled sets the monotonic killed flag (spec §3 invariants, §5).
func (c *Context) SetKilled(force bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Killed = true
	if force {
		c.ForceKilled = true
	}
}

func (c *Context) IsKilled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Killed
}

func (c *Context) IsForceKilled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ForceKilled
}

func (c *Context) GetSleepMs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.SleepMs
}

func (c *Context) SetSleepMs(ms int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SleepMs = ms
}

func (c *Context) SetCurrentDB(db string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CurrentDB = db
}

func (c *Context) GetCurrentDB() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CurrentDB
}

func (c *Context) SetRemoteThreadID(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RemoteThreadID = id
}

func (c *Context) GetRemoteThreadID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.RemoteThreadID
}
