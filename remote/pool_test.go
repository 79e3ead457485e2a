package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseProfileMySQL(t *testing.T) {
	p := parseProfile("5.7.29-log")
	assert.False(t, p.IsTiDB)
	assert.Equal(t, 5, p.Major)
	assert.Equal(t, 7, p.Minor)
}

func TestParseProfileTiDB(t *testing.T) {
	p := parseProfile("5.7.25-TiDB-v4.0.3")
	assert.True(t, p.IsTiDB)
	assert.Equal(t, 4, p.Major)
	assert.Equal(t, 0, p.Minor)
}

func TestParseProfileTiDBLowercase(t *testing.T) {
	p := parseProfile("5.7.25-tidb-v3.1.0")
	assert.True(t, p.IsTiDB)
	assert.Equal(t, 3, p.Major)
	assert.Equal(t, 1, p.Minor)
}

func TestDSNShape(t *testing.T) {
	creds := Credentials{User: "root", Password: "secret"}
	ep := Endpoint{Host: "127.0.0.1", Port: 3306}
	d := dsn(creds, ep, 0, 0)
	assert.Contains(t, d, "root:secret@tcp(127.0.0.1:3306)/information_schema")
	assert.Contains(t, d, "charset=utf8mb4")
	assert.Contains(t, d, "parseTime=True")
}

func TestPoolFailedBeforeConnect(t *testing.T) {
	p := New(Endpoint{Host: "127.0.0.1", Port: 3306}, Credentials{User: "root"}, 0, 0)
	failed, err := p.Failed()
	assert.False(t, failed)
	assert.NoError(t, err)
}
