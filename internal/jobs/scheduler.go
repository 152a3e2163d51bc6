package jobs

import (
	"github.com/hibiken/asynq"
)

// NewMux wires every task type to its handler.
func NewMux(h *Handlers) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeInvoicePDF, h.HandleInvoicePDF)
	mux.HandleFunc(TypeReceiptPDF, h.HandleReceiptPDF)
	mux.HandleFunc(TypePayslipPDF, h.HandlePayslipPDF)
	mux.HandleFunc(TypeInvoiceEmail, h.HandleInvoiceEmail)
	mux.HandleFunc(TypePaymentEmail, h.HandlePaymentEmail)
	mux.HandleFunc(TypeUnpaidCheck, h.HandleUnpaidCheck)
	mux.HandleFunc(TypeServiceCutoff, h.HandleServiceCutoff)
	mux.HandleFunc(TypeServiceRestore, h.HandleServiceRestore)
	return mux
}

// NewScheduler registers the recurring dunning runs: the daily morning batch
// plus a six-hourly backup pass. Reminder idempotency makes the overlap
// harmless.
func NewScheduler(redisOpt asynq.RedisClientOpt, dailyCron, backupCron string) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register(dailyCron, NewUnpaidCheckTask()); err != nil {
		return nil, err
	}
	if _, err := scheduler.Register(backupCron, NewUnpaidCheckTask()); err != nil {
		return nil, err
	}
	return scheduler, nil
}
