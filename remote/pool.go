// Package remote implements the remote connection pool, schema prober and
// EXPLAIN-based row estimator (spec §4.5, §6.3). It is grounded directly on
// the real Go reimplementation of this system's remote probing
// (other_examples/hanchuanchuan-goInception__session_inception.go), which
// opens the remote target with gorm.Open("mysql", dsn) using exactly the
// DSN shape reused here.
package remote

import (
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"github.com/hanchuanchuan/goinception-gateway/logging"
)

var logger = logging.GetLogger("remote")

// Endpoint is a host:port a pool can dial.
type Endpoint struct {
	Host string
	Port int
}

// Profile is the detected remote flavor (spec §4.5 "Profile detection").
type Profile struct {
	IsTiDB bool
	Major  int
	Minor  int
}

// Credentials authenticate against the primary and any replicas.
type Credentials struct {
	User     string
	Password string
}

// Pool is a lazy, per-session, unshared connection holder for the one
// primary connection reused for probes and execution (spec §4.5). Replica
// connections are not held here; see OpenReplica.
type Pool struct {
	primaryEndpoint Endpoint
	creds           Credentials

	connectTimeout time.Duration
	ioTimeout      time.Duration

	mu      sync.Mutex
	primary *gorm.DB
	failed  bool
	failErr error

	profile     Profile
	profileOnce sync.Once
}

// New creates an unconnected pool. Connect happens lazily on first use
// (spec §4.5 "Lazy, per-session").
func New(primary Endpoint, creds Credentials, connectTimeout, ioTimeout time.Duration) *Pool {
	return &Pool{
		primaryEndpoint: primary,
		creds:           creds,
		connectTimeout:  connectTimeout,
		ioTimeout:       ioTimeout,
	}
}

func dsn(creds Credentials, ep Endpoint, timeout, readTimeout time.Duration) string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/information_schema?charset=utf8mb4&parseTime=True&loc=Local&timeout=%s&readTimeout=%s&writeTimeout=%s",
		creds.User, creds.Password, ep.Host, ep.Port, timeout, readTimeout, readTimeout,
	)
}

// Primary returns the (lazily opened) primary connection. A single failed
// connect poisons the pool for the rest of the session (spec §4.5 "poisons
// the handle to avoid storm-retries").
func (p *Pool) Primary() (*gorm.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed {
		return nil, p.failErr
	}
	if p.primary != nil {
		return p.primary, nil
	}
	db, err := gorm.Open("mysql", dsn(p.creds, p.primaryEndpoint, p.connectTimeout, p.ioTimeout))
	if err != nil {
		p.failed = true
		p.failErr = errors.Wrapf(err, "cannot connect to remote %s:%d", p.primaryEndpoint.Host, p.primaryEndpoint.Port)
		return nil, p.failErr
	}
	db.DB().SetConnMaxLifetime(time.Hour)
	p.primary = db
	return p.primary, nil
}

// Failed reports whether a prior connect attempt poisoned the pool.
func (p *Pool) Failed() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed, p.failErr
}

// Close releases the primary connection.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.primary != nil {
		err := p.primary.Close()
		p.primary = nil
		return err
	}
	return nil
}

// Reconnect drops and reopens the primary connection, used by the
// execution engine when a connection is lost mid-batch (spec §4.5
// "Reconnect on drop during execution").
func (p *Pool) Reconnect() (*gorm.DB, error) {
	p.mu.Lock()
	p.primary = nil
	p.failed = false
	p.failErr = nil
	p.mu.Unlock()
	return p.Primary()
}

var versionTiDBMarker = regexp.MustCompile(`(?i)tidb-v|tidb-`)
var versionNumber = regexp.MustCompile(`(\d+)\.(\d+)`)

// DetectProfile reads @@version/server_version and parses the
// (flavor, major, minor) tuple (spec §4.5 "Profile detection"). TiDB is
// detected by a case-insensitive substring match, and major.minor is
// parsed preferring the TiDB-vX.Y marker, falling back to the first M.N
// pattern in the string.
func (p *Pool) DetectProfile() (Profile, error) {
	var outerErr error
	p.profileOnce.Do(func() {
		db, err := p.Primary()
		if err != nil {
			outerErr = err
			return
		}
		var version string
		row := db.DB().QueryRow("SELECT @@version")
		if err := row.Scan(&version); err != nil {
			outerErr = errors.Wrap(err, "read @@version")
			return
		}
		p.profile = parseProfile(version)
	})
	if outerErr != nil {
		return Profile{}, outerErr
	}
	return p.profile, nil
}

func parseProfile(version string) Profile {
	isTiDB := strings.Contains(strings.ToLower(version), "tidb")
	prof := Profile{IsTiDB: isTiDB}

	search := version
	if isTiDB {
		if idx := versionTiDBMarker.FindStringIndex(version); idx != nil {
			search = version[idx[1]:]
		}
	}
	if m := versionNumber.FindStringSubmatch(search); m != nil {
		prof.Major, _ = strconv.Atoi(m[1])
		prof.Minor, _ = strconv.Atoi(m[2])
	}
	return prof
}

// ReplicaConn is a short-lived connection opened only while an execute
// phase is polling SHOW SLAVE STATUS (spec §4.5).
type ReplicaConn struct {
	db *sql.DB
}

func OpenReplica(creds Credentials, ep Endpoint, connectTimeout, ioTimeout time.Duration) (*ReplicaConn, error) {
	db, err := sql.Open("mysql", dsn(creds, ep, connectTimeout, ioTimeout))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot connect to replica %s:%d", ep.Host, ep.Port)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "cannot connect to replica %s:%d", ep.Host, ep.Port)
	}
	return &ReplicaConn{db: db}, nil
}

func (r *ReplicaConn) Close() error {
	return r.db.Close()
}

func (r *ReplicaConn) DB() *sql.DB {
	return r.db
}
