package security

import (
	"errors"
	"strings"
	"testing"

	"github.com/ruslano69/dbgate/pkg/adapters"
)

func TestCheckIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"plain", "users", false},
		{"with quote chars", `we"ird]name`, false},
		{"unicode", "пользователи", false},
		{"empty", "", true},
		{"blank", "  \t", true},
		{"control char", "users\x00", true},
		{"newline", "users\nx", true},
		{"too long", strings.Repeat("a", MaxIdentifierLength+1), true},
		{"max length", strings.Repeat("я", MaxIdentifierLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckIdentifier("table", tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckIdentifier(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, adapters.ErrInvalidInput) {
				t.Errorf("error %v is not ErrInvalidInput", err)
			}
		})
	}
}

func TestForbiddenTables(t *testing.T) {
	policy := NewForbiddenTables([]string{"Secrets", " hr.Salaries ", "", "  "})

	if got := policy.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
	if got := policy.Entries(); got[0] != "hr.salaries" || got[1] != "secrets" {
		t.Errorf("Entries() = %v", got)
	}

	tests := []struct {
		table   adapters.TableDescriptor
		blocked bool
	}{
		{adapters.TableDescriptor{Name: "secrets"}, true},
		{adapters.TableDescriptor{Schema: "any", Name: "SECRETS"}, true},
		{adapters.TableDescriptor{Schema: "HR", Name: "salaries"}, true},
		{adapters.TableDescriptor{Schema: "payroll", Name: "salaries"}, false},
		{adapters.TableDescriptor{Name: "salaries"}, false},
		{adapters.TableDescriptor{Name: "users"}, false},
	}
	for _, tt := range tests {
		err := policy.CheckTable(tt.table)
		if (err != nil) != tt.blocked {
			t.Errorf("CheckTable(%s) = %v, blocked %v", tt.table, err, tt.blocked)
			continue
		}
		if err != nil {
			if !errors.Is(err, adapters.ErrForbiddenTable) || !errors.Is(err, adapters.ErrInvalidInput) {
				t.Errorf("CheckTable(%s) error %v has wrong family", tt.table, err)
			}
		}
	}
}
