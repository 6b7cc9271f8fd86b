// Package store owns the relational schema shared by the domain repositories.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	"call-assistant/pkg/logger"
	"call-assistant/pkg/utils"
)

//go:embed schema.sql
var schemaSQL string

// Statements splits the embedded schema into individual statements.
func Statements() []string {
	var out []string
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Migrate applies the idempotent schema in one transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := Statements()
	err := utils.WithTx(ctx, db, nil, func(ctx context.Context, tx *sql.Tx) error {
		for i, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migrate statement %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.From(ctx).Info("schema migrated", "statements", len(stmts))
	return nil
}
