package split

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanchuanchuan/goinception-gateway/parsing"
	"github.com/hanchuanchuan/goinception-gateway/session"
)

func TestUseUpdatesCurrentDBAndProducesNoRow(t *testing.T) {
	p := parsing.New()
	stmt, err := p.ParseOne("USE shop")
	require.NoError(t, err)

	ctx := session.NewContext(1)
	g := New()
	group, ok := g.Feed(ctx, stmt, "USE shop")
	assert.False(t, ok)
	assert.Nil(t, group)
	assert.Equal(t, "shop", ctx.GetCurrentDB())
}

func TestSetProducesNoRow(t *testing.T) {
	p := parsing.New()
	stmt, err := p.ParseOne("SET @x = 1")
	require.NoError(t, err)

	ctx := session.NewContext(1)
	g := New()
	_, ok := g.Feed(ctx, stmt, "SET @x = 1")
	assert.False(t, ok)
	assert.Empty(t, ctx.SplitGroups)
}

func TestMergesConsecutiveStatementsOnSameTable(t *testing.T) {
	p := parsing.New()
	ctx := session.NewContext(1)
	g := New()

	use, _ := p.ParseOne("USE shop")
	g.Feed(ctx, use, "USE shop")

	ins1, err := p.ParseOne("INSERT INTO orders VALUES (1)")
	require.NoError(t, err)
	g1, ok := g.Feed(ctx, ins1, "INSERT INTO orders VALUES (1)")
	require.True(t, ok)

	ins2, err := p.ParseOne("INSERT INTO orders VALUES (2)")
	require.NoError(t, err)
	g2, ok := g.Feed(ctx, ins2, "INSERT INTO orders VALUES (2)")
	require.True(t, ok)

	assert.Same(t, g1, g2)
	assert.Len(t, ctx.SplitGroups, 1)
	assert.Contains(t, g2.SQL, "INSERT INTO orders VALUES (1)")
	assert.Contains(t, g2.SQL, "INSERT INTO orders VALUES (2)")
}

func TestStartsNewGroupOnDifferentTable(t *testing.T) {
	p := parsing.New()
	ctx := session.NewContext(1)
	g := New()

	ins1, _ := p.ParseOne("INSERT INTO orders VALUES (1)")
	g.Feed(ctx, ins1, "INSERT INTO orders VALUES (1)")

	ins2, _ := p.ParseOne("INSERT INTO customers VALUES (1)")
	g.Feed(ctx, ins2, "INSERT INTO customers VALUES (1)")

	assert.Len(t, ctx.SplitGroups, 2)
}

func TestAlterTableEscalatesDDLFlag(t *testing.T) {
	p := parsing.New()
	ctx := session.NewContext(1)
	g := New()

	alter, err := p.ParseOne("ALTER TABLE orders ADD COLUMN x INT")
	require.NoError(t, err)
	group, ok := g.Feed(ctx, alter, "ALTER TABLE orders ADD COLUMN x INT")
	require.True(t, ok)
	assert.Equal(t, 1, group.DDLFlag)
}

func TestNewGroupIsPrefixedWithUse(t *testing.T) {
	p := parsing.New()
	ctx := session.NewContext(1)
	g := New()

	use, _ := p.ParseOne("USE shop")
	g.Feed(ctx, use, "USE shop")

	ins, err := p.ParseOne("INSERT INTO orders VALUES (1)")
	require.NoError(t, err)
	group, ok := g.Feed(ctx, ins, "INSERT INTO orders VALUES (1)")
	require.True(t, ok)
	assert.Contains(t, group.SQL, "USE shop;\n")
}
