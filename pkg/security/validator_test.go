package security

import (
	"errors"
	"strings"
	"testing"

	"github.com/ruslano69/dbgate/pkg/adapters"
)

func TestQueryGuard_ReadOnly(t *testing.T) {
	guard := NewQueryGuard(true)

	tests := []struct {
		name    string
		sql     string
		wantErr bool
		errMsg  string
	}{
		{name: "simple select", sql: "SELECT * FROM users"},
		{name: "lower case", sql: "select id from users where age > 18"},
		{name: "join", sql: "SELECT u.name, o.total FROM users u JOIN orders o ON u.id = o.user_id"},
		{name: "trailing semicolon", sql: "SELECT * FROM users;"},
		{name: "cte", sql: "WITH t AS (SELECT 1 AS x) SELECT x FROM t"},
		{name: "keyword inside literal", sql: "SELECT * FROM audit WHERE action = 'DELETE'"},
		{name: "keyword inside identifier", sql: `SELECT "update" FROM [drop]`},
		{name: "keyword as column prefix", sql: "SELECT deleted_at, updated_by FROM users"},
		{name: "insert", sql: "INSERT INTO users VALUES (1)", wantErr: true, errMsg: "INSERT"},
		{name: "select into", sql: "SELECT * INTO backup FROM users", wantErr: true, errMsg: "INTO"},
		{name: "cte with delete", sql: "WITH d AS (DELETE FROM users RETURNING *) SELECT * FROM d", wantErr: true, errMsg: "DELETE"},
		{name: "stacked statements", sql: "SELECT 1; DROP TABLE users", wantErr: true, errMsg: "multiple statements"},
		{name: "line comment", sql: "SELECT 1 -- hidden", wantErr: true, errMsg: "comments"},
		{name: "block comment", sql: "SELECT /* x */ 1", wantErr: true, errMsg: "comments"},
		{name: "exec", sql: "EXEC sp_who", wantErr: true, errMsg: "EXEC"},
		{name: "blank", sql: "   ", wantErr: true, errMsg: "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.Check(tt.sql)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Check(%q) error = %v, wantErr %v", tt.sql, err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Check(%q) error = %q, want it to contain %q", tt.sql, err, tt.errMsg)
			}
			if !errors.Is(err, ErrNotReadOnly) || !errors.Is(err, adapters.ErrInvalidInput) {
				t.Errorf("Check(%q) error must wrap ErrNotReadOnly and ErrInvalidInput", tt.sql)
			}
		})
	}
}

func TestQueryGuard_Unrestricted(t *testing.T) {
	guard := NewQueryGuard(false)
	if guard.ReadOnly() {
		t.Fatal("ReadOnly() = true, want false")
	}
	for _, sql := range []string{"DROP TABLE users", "DELETE FROM users; -- bye"} {
		if err := guard.Check(sql); err != nil {
			t.Errorf("Check(%q) = %v, want nil", sql, err)
		}
	}
}
