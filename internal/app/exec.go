package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// execute runs one use-case invocation inside a unit of work: begin, run fn,
// then commit on success or rollback on any failure. Commit/rollback errors
// are logged and swallowed; by the time either is attempted the business
// decision is final and a secondary infrastructure hiccup must not mask it.
// Error wrapping happens here, once, for every use case.
func execute[T any](ctx context.Context, name string, provider UnitOfWorkProvider, fn func(uow UnitOfWork) (T, error)) (T, error) {
	var zero T
	start := time.Now()

	uow, err := provider.Begin(ctx)
	if err != nil {
		recordExecution(ctx, name, time.Since(start), err)
		return zero, wrapError(name, "begin", err)
	}

	result, err := fn(uow)
	if err != nil {
		if rbErr := uow.Rollback(); rbErr != nil {
			log.Warn().Err(rbErr).Str("useCase", name).Msg("rollback failed")
		}
		recordExecution(ctx, name, time.Since(start), err)
		return zero, wrapError(name, "execute", err)
	}

	if cmErr := uow.Commit(); cmErr != nil {
		log.Warn().Err(cmErr).Str("useCase", name).Msg("commit failed")
	}
	recordExecution(ctx, name, time.Since(start), nil)
	return result, nil
}
