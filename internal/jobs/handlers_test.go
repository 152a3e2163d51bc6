package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IntellivanoCode/mwoloenergysystems/internal/billing"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/crm"
	"github.com/IntellivanoCode/mwoloenergysystems/internal/operations"
)

type sentMail struct {
	to      string
	subject string
}

type recordMailer struct {
	sent []sentMail
	err  error
}

func (m *recordMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject})
	return nil
}

type fakeBilling struct {
	billing.Store

	overdue     []billing.Invoice
	invoices    map[string]billing.Invoice
	paid        map[string]float64
	reminders   []string
	reminderErr error
}

func (f *fakeBilling) ListOverdueInvoices(ctx context.Context, today time.Time) ([]billing.Invoice, error) {
	return f.overdue, nil
}

func (f *fakeBilling) GetInvoice(ctx context.Context, invoiceID string) (billing.Invoice, error) {
	inv, ok := f.invoices[invoiceID]
	if !ok {
		return billing.Invoice{}, billing.ErrInvoiceNotFound
	}
	return inv, nil
}

func (f *fakeBilling) AmountPaid(ctx context.Context, invoiceID string) (float64, error) {
	return f.paid[invoiceID], nil
}

func (f *fakeBilling) RecordReminder(ctx context.Context, invoiceID, reminderType string) (billing.Reminder, error) {
	if f.reminderErr != nil {
		return billing.Reminder{}, f.reminderErr
	}
	f.reminders = append(f.reminders, invoiceID+":"+reminderType)
	return billing.Reminder{InvoiceID: invoiceID, ReminderType: reminderType}, nil
}

type fakeCRM struct {
	crm.Store

	clients map[string]crm.Client
	sites   map[string]crm.Site
}

func (f *fakeCRM) GetClient(ctx context.Context, clientID string) (crm.Client, error) {
	c, ok := f.clients[clientID]
	if !ok {
		return crm.Client{}, crm.ErrClientNotFound
	}
	return c, nil
}

func (f *fakeCRM) GetSite(ctx context.Context, siteID string) (crm.Site, error) {
	s, ok := f.sites[siteID]
	if !ok {
		return crm.Site{}, crm.ErrSiteNotFound
	}
	return s, nil
}

type fakeOperations struct {
	operations.Store

	meters      []operations.Meter
	deactivated []string
	activated   []string
}

func (f *fakeOperations) ListMetersBySite(ctx context.Context, siteID string, serviceActive *bool) ([]operations.Meter, error) {
	var out []operations.Meter
	for _, m := range f.meters {
		if serviceActive != nil && m.ServiceActive != *serviceActive {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeOperations) DeactivateService(ctx context.Context, meterID string) (operations.Meter, error) {
	f.deactivated = append(f.deactivated, meterID)
	return operations.Meter{MeterID: meterID}, nil
}

func (f *fakeOperations) ActivateService(ctx context.Context, meterID string) (operations.Meter, error) {
	f.activated = append(f.activated, meterID)
	return operations.Meter{MeterID: meterID, ServiceActive: true}, nil
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
}

func overdueInvoice(daysOverdue int) billing.Invoice {
	site := "site-1"
	due := fixedNow().AddDate(0, 0, -daysOverdue)
	return billing.Invoice{
		InvoiceID:     "inv-1",
		InvoiceNumber: "INV-2026-0001",
		ClientID:      "client-1",
		SiteID:        &site,
		PeriodEnd:     due.Format("2006-01-02"),
		Total:         1200,
		Status:        billing.StatusSent,
	}
}

func testClient() crm.Client {
	return crm.Client{ClientID: "client-1", FirstName: "Jean", LastName: "Kabila", Email: "jean@example.test"}
}

func TestUnpaidCheckFiresOnlyMostSevereStage(t *testing.T) {
	store := &fakeBilling{overdue: []billing.Invoice{overdueInvoice(15)}, paid: map[string]float64{"inv-1": 400}}
	mail := &recordMailer{}
	enq := &fakeEnqueuer{}
	h := &Handlers{
		Billing: store,
		CRM:     &fakeCRM{clients: map[string]crm.Client{"client-1": testClient()}},
		Mailer:  mail,
		Client:  enq,
		Now:     fixedNow,
	}

	err := h.HandleUnpaidCheck(context.Background(), NewUnpaidCheckTask())
	require.NoError(t, err)

	require.Equal(t, []string{"inv-1:" + billing.ReminderJ14}, store.reminders, "only j14 must fire, never j3/j7 retroactively")
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "jean@example.test", mail.sent[0].to)

	require.Len(t, enq.tasks, 1, "final stage must schedule the cutoff")
	assert.Equal(t, TypeServiceCutoff, enq.tasks[0].Type())
}

func TestUnpaidCheckEarlyStageNoCutoff(t *testing.T) {
	store := &fakeBilling{overdue: []billing.Invoice{overdueInvoice(4)}, paid: map[string]float64{}}
	mail := &recordMailer{}
	enq := &fakeEnqueuer{}
	h := &Handlers{
		Billing: store,
		CRM:     &fakeCRM{clients: map[string]crm.Client{"client-1": testClient()}},
		Mailer:  mail,
		Client:  enq,
		Now:     fixedNow,
	}

	require.NoError(t, h.HandleUnpaidCheck(context.Background(), NewUnpaidCheckTask()))
	assert.Equal(t, []string{"inv-1:" + billing.ReminderJ3}, store.reminders)
	assert.Empty(t, enq.tasks)
}

func TestUnpaidCheckBelowThresholdDoesNothing(t *testing.T) {
	store := &fakeBilling{overdue: []billing.Invoice{overdueInvoice(2)}}
	h := &Handlers{Billing: store, CRM: &fakeCRM{}, Mailer: &recordMailer{}, Now: fixedNow}

	require.NoError(t, h.HandleUnpaidCheck(context.Background(), NewUnpaidCheckTask()))
	assert.Empty(t, store.reminders)
}

func TestUnpaidCheckRerunRefiresCutoffWithoutMail(t *testing.T) {
	store := &fakeBilling{
		overdue:     []billing.Invoice{overdueInvoice(15)},
		reminderErr: billing.ErrReminderAlreadySent,
	}
	mail := &recordMailer{}
	enq := &fakeEnqueuer{}
	h := &Handlers{Billing: store, CRM: &fakeCRM{}, Mailer: mail, Client: enq, Now: fixedNow}

	require.NoError(t, h.HandleUnpaidCheck(context.Background(), NewUnpaidCheckTask()))
	assert.Empty(t, mail.sent, "already-sent stage must not mail again")

	require.Len(t, enq.tasks, 1, "cutoff re-fires every cycle while unpaid")
	assert.Equal(t, TypeServiceCutoff, enq.tasks[0].Type())
}

func TestReminderMailFailureSurfaces(t *testing.T) {
	store := &fakeBilling{paid: map[string]float64{}}
	mail := &recordMailer{err: errors.New("smtp down")}
	h := &Handlers{
		Billing: store,
		CRM:     &fakeCRM{clients: map[string]crm.Client{"client-1": testClient()}},
		Mailer:  mail,
		Now:     fixedNow,
	}

	err := h.remind(context.Background(), overdueInvoice(8), fixedNow())
	require.Error(t, err, "reminder mail is transactional, the failure must be reported")
	assert.Equal(t, []string{"inv-1:" + billing.ReminderJ7}, store.reminders, "stage stays recorded")
}

func TestUnpaidCheckContinuesPastMailFailure(t *testing.T) {
	store := &fakeBilling{overdue: []billing.Invoice{overdueInvoice(8)}, paid: map[string]float64{}}
	mail := &recordMailer{err: errors.New("smtp down")}
	h := &Handlers{
		Billing: store,
		CRM:     &fakeCRM{clients: map[string]crm.Client{"client-1": testClient()}},
		Mailer:  mail,
		Now:     fixedNow,
	}

	require.NoError(t, h.HandleUnpaidCheck(context.Background(), NewUnpaidCheckTask()), "a failed invoice is logged, not fatal to the batch")
	assert.Equal(t, []string{"inv-1:" + billing.ReminderJ7}, store.reminders)
}

func TestInvoiceEmailPropagatesMailerFailure(t *testing.T) {
	store := &fakeBilling{invoices: map[string]billing.Invoice{"inv-1": overdueInvoice(0)}}
	h := &Handlers{
		Billing: store,
		CRM:     &fakeCRM{clients: map[string]crm.Client{"client-1": testClient()}},
		Mailer:  &recordMailer{err: errors.New("smtp down")},
	}

	err := h.HandleInvoiceEmail(context.Background(), NewInvoiceEmailTask("inv-1"))
	require.Error(t, err, "transactional mail must surface the failure for retry")
}

func TestServiceCutoffDeactivatesActiveMeters(t *testing.T) {
	ops := &fakeOperations{meters: []operations.Meter{
		{MeterID: "m1", ServiceActive: true},
		{MeterID: "m2", ServiceActive: false},
	}}
	mail := &recordMailer{}
	h := &Handlers{
		Operations: ops,
		CRM: &fakeCRM{
			clients: map[string]crm.Client{"client-1": testClient()},
			sites:   map[string]crm.Site{"site-1": {SiteID: "site-1", ClientID: "client-1", Name: "Depot Limete"}},
		},
		Mailer: mail,
	}

	require.NoError(t, h.HandleServiceCutoff(context.Background(), NewServiceCutoffTask("site-1")))
	assert.Equal(t, []string{"m1"}, ops.deactivated, "already-off meters are skipped")
	require.Len(t, mail.sent, 1)
}

func TestServiceCutoffNotifiesPerMeter(t *testing.T) {
	ops := &fakeOperations{meters: []operations.Meter{
		{MeterID: "m1", ServiceActive: true},
		{MeterID: "m2", ServiceActive: true},
	}}
	mail := &recordMailer{}
	h := &Handlers{
		Operations: ops,
		CRM: &fakeCRM{
			clients: map[string]crm.Client{"client-1": testClient()},
			sites:   map[string]crm.Site{"site-1": {SiteID: "site-1", ClientID: "client-1", Name: "Depot Limete"}},
		},
		Mailer: mail,
	}

	require.NoError(t, h.HandleServiceCutoff(context.Background(), NewServiceCutoffTask("site-1")))
	assert.Equal(t, []string{"m1", "m2"}, ops.deactivated)
	assert.Len(t, mail.sent, 2, "each meter cut gets its own notice")
}

func TestServiceCutoffNoMatchingMetersSendsNothing(t *testing.T) {
	ops := &fakeOperations{meters: []operations.Meter{{MeterID: "m1", ServiceActive: false}}}
	mail := &recordMailer{}
	h := &Handlers{Operations: ops, CRM: &fakeCRM{}, Mailer: mail}

	require.NoError(t, h.HandleServiceCutoff(context.Background(), NewServiceCutoffTask("site-1")))
	assert.Empty(t, ops.deactivated)
	assert.Empty(t, mail.sent)
}

func TestServiceRestoreSendsSingleNotice(t *testing.T) {
	ops := &fakeOperations{meters: []operations.Meter{
		{MeterID: "m1", ServiceActive: false},
		{MeterID: "m2", ServiceActive: false},
	}}
	mail := &recordMailer{}
	h := &Handlers{
		Operations: ops,
		CRM: &fakeCRM{
			clients: map[string]crm.Client{"client-1": testClient()},
			sites:   map[string]crm.Site{"site-1": {SiteID: "site-1", ClientID: "client-1", Name: "Depot Limete"}},
		},
		Mailer: mail,
	}

	require.NoError(t, h.HandleServiceRestore(context.Background(), NewServiceRestoreTask("site-1")))
	assert.Equal(t, []string{"m1", "m2"}, ops.activated)
	require.Len(t, mail.sent, 1, "restoration is announced once for the whole site")
}
