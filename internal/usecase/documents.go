package usecase

import (
	"context"
	"fmt"
	"time"

	drepo "DerivBot/internal/domain/repository"
	"DerivBot/pkg/logger"
)

// quarantineCorrupt moves a corrupt document aside before it is replaced, when
// the store supports it. Failure is logged; the caller heals regardless.
func quarantineCorrupt(ctx context.Context, store drepo.DocumentStore, name string, at time.Time, log *logger.Logger) {
	q, ok := store.(drepo.Quarantiner)
	if !ok {
		log.Warn("corrupt document discarded", logger.String("document", name))
		return
	}
	backup, err := q.Quarantine(ctx, name, fmt.Sprintf("corrupt-%d", at.Unix()))
	if err != nil {
		log.Error("corrupt document backup failed", logger.String("document", name), logger.Error(err))
		return
	}
	log.Warn("corrupt document moved aside", logger.String("document", name), logger.String("backup", backup))
}
