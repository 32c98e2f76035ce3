package database

import (
	"context"
	"fmt"
)

// SeedSchool is a school row written at startup
type SeedSchool struct {
	Name    string
	Address string
}

// DefaultSchools is the sample school registry
var DefaultSchools = []SeedSchool{
	{Name: "Sample School 1", Address: "123 Main St"},
	{Name: "Sample School 2", Address: "456 Elm St"},
}

// SeedSchools inserts any schools that are not present yet and returns how
// many rows were added. Running it repeatedly is safe.
func (db *DB) SeedSchools(ctx context.Context, schools []SeedSchool) (int, error) {
	query := db.Dialect.InsertIfAbsentQuery("schools", []string{"name", "address"}, []string{"name"})

	added := 0
	err := db.WithTx(ctx, func(tx *Tx) error {
		for _, s := range schools {
			result, err := tx.ExecContext(ctx, query, s.Name, s.Address)
			if err != nil {
				return fmt.Errorf("failed to seed school %q: %w", s.Name, err)
			}
			// MySQL reports 0 for the no-op duplicate branch, 1 for an insert.
			if n, err := result.RowsAffected(); err == nil && n == 1 {
				added++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return added, nil
}
