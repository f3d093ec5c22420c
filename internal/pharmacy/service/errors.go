package service

import (
	"github.com/rxdesk/pharmacy-backend/pkg/database"
	"github.com/rxdesk/pharmacy-backend/pkg/errors"
	"github.com/rxdesk/pharmacy-backend/pkg/logger"
)

// mapStoreError turns storage failures into client facing errors. AppErrors
// pass through, constraint violations become 4xx, the rest is logged and
// masked.
func mapStoreError(log *logger.Logger, err error, message string) error {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if mapped := database.MapPQError(err); mapped != nil {
		return mapped
	}

	log.Error().Err(err).Msg(message)
	return errors.InternalWrap(err, message)
}
