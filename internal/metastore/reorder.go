package metastore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/starford/wikimeta/internal/apperr"
	"github.com/starford/wikimeta/internal/models"
)

// sentinelRank parks the moving record while the block between the two
// ranks shifts. No real record ever holds it.
const sentinelRank = -2

// Reorder moves the current planned record at rank initial to rank changeTo,
// shifting the records in between by one so ranks stay dense and unique.
// Both ranks must be held by current planned records, otherwise
// apperr.ErrInvariant is returned and nothing changes.
func (s *Store) Reorder(ctx context.Context, initial, changeTo int) error {
	err := s.withTx(ctx, "reorder", func(tx *sql.Tx) error {
		for _, rank := range []int{initial, changeTo} {
			held, err := rankHeld(ctx, tx, rank)
			if err != nil {
				return err
			}
			if !held {
				return fmt.Errorf("metastore: reorder %d to %d: rank %d not held by a current planned record: %w",
					initial, changeTo, rank, apperr.ErrInvariant)
			}
		}
		if initial == changeTo {
			return nil
		}
		return shiftRanks(ctx, tx, initial, changeTo)
	})
	if err != nil {
		return err
	}
	s.metrics.Reordered()
	s.logger.Debug("metastore: reordered", slog.Int("from", initial), slog.Int("to", changeTo))
	return nil
}

func rankHeld(ctx context.Context, tx *sql.Tx, rank int) (bool, error) {
	if rank < 1 {
		return false, nil
	}
	var n int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM wikimeta
		WHERE current = 1 AND state = ? AND priority = ?
	`, string(models.StatePlanned), rank).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("metastore: check rank %d: %w", rank, err)
	}
	return n > 0, nil
}

func shiftRanks(ctx context.Context, tx *sql.Tx, initial, changeTo int) error {
	exec := func(query string, args ...any) error {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("metastore: reorder %d to %d: %w", initial, changeTo, err)
		}
		return nil
	}

	if err := exec(`UPDATE wikimeta SET priority = ? WHERE current = 1 AND priority = ?`, sentinelRank, initial); err != nil {
		return err
	}

	var err error
	if initial > changeTo {
		err = exec(`UPDATE wikimeta SET priority = priority + 1
			WHERE current = 1 AND priority >= ? AND priority <= ?`, changeTo, initial)
	} else {
		err = exec(`UPDATE wikimeta SET priority = priority - 1
			WHERE current = 1 AND priority >= ? AND priority <= ?`, initial, changeTo)
	}
	if err != nil {
		return err
	}

	return exec(`UPDATE wikimeta SET priority = ? WHERE current = 1 AND priority = ?`, changeTo, sentinelRank)
}
