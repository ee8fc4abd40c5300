package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitStatements(t *testing.T) {
	schema := `
-- header comment
CREATE TABLE a (id INT);

-- another comment
CREATE TABLE b (
    id INT -- trailing
);
;
`
	stmts := splitStatements(schema)
	assert.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (id INT)", stmts[0])
	assert.Contains(t, stmts[1], "CREATE TABLE b")
}
