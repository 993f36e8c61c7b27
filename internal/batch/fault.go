package batch

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-pricer/internal/domain/order"
)

// fault records an unanticipated error on out. An order that already failed
// validation keeps its original reason.
func fault(ctx context.Context, out *Outcome, err error) {
	logCritical(zctx.From(ctx), "Unexpected fault while processing order", err)

	out.OK = false
	if out.Reason == order.ReasonNone {
		out.Reason = order.ReasonUnexpectedFault
		out.Err = err
	}
}

// logCritical logs at the highest non-terminating zap level, marked critical
// and with a stack trace.
func logCritical(lg *zap.Logger, msg string, err error) {
	lg.Error(msg,
		zap.Bool("critical", true),
		zap.Error(err),
		zap.Stack("stack"),
	)
}
