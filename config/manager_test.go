package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRulesSeverities(t *testing.T) {
	r := DefaultRules()
	assert.Equal(t, Error, r.RequirePrimaryKey)
	assert.Equal(t, Error, r.RequireTableComment)
	assert.Equal(t, Error, r.ForbidDMLWithoutWhere)
	assert.Equal(t, Warn, r.DMLWithOrderBy)
	assert.Equal(t, Off, r.DMLWithLimit)
	assert.Equal(t, 10000, r.MaxRowsEstimate)
	assert.Equal(t, "uniq_", r.UniqueKeyPrefix)
}

func TestParseSeverity(t *testing.T) {
	cases := map[string]Severity{
		"off": Off, "OFF": Off, "0": Off,
		"warn": Warn, "WARNING": Warn, "1": Warn,
		"error": Error, "ERR": Error, "2": Error,
	}
	for in, want := range cases {
		got, ok := ParseSeverity(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseSeverity("bogus")
	assert.False(t, ok)
}

func TestManagerFallsBackToDefaultsWhenNoFile(t *testing.T) {
	mgr, err := NewManager("/nonexistent/path/gateway.yaml")
	assert.NoError(t, err)
	assert.Equal(t, DefaultRules().RequirePrimaryKey, mgr.Config.Rules.RequirePrimaryKey)
}
