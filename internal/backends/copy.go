package backends

import (
	"context"
	"errors"
	"fmt"
	"log"

	"flylow/models"
	"flylow/services/favorites"
)

// CopyResult counts what Copy did.
type CopyResult struct {
	Copied  int
	Skipped int
}

// Copy writes every record to dst. Users that already exist in dst are left
// untouched so the copy can be re-run.
func Copy(ctx context.Context, records []models.UserRecord, dst favorites.Store) (CopyResult, error) {
	var res CopyResult
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		_, err := dst.GetUser(ctx, record.ID)
		switch {
		case err == nil:
			log.Printf("[backends] user %s already present, skipping", record.ID)
			res.Skipped++
			continue
		case !errors.Is(err, favorites.ErrUserNotFound):
			return res, fmt.Errorf("check user %s: %w", record.ID, err)
		}

		if err := dst.CreateUser(ctx, record.ID, record); err != nil {
			return res, fmt.Errorf("copy user %s: %w", record.ID, err)
		}
		res.Copied++
	}
	return res, nil
}
