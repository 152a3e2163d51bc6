package mailer

import (
	"fmt"
	"strings"
)

// Message is a rendered subject/body pair ready to hand to a Mailer.
type Message struct {
	Subject string
	Body    string
}

// Vars feeds template placeholders of the form {name}.
type Vars map[string]string

const (
	TemplateInvoiceSent         = "invoice_sent"
	TemplateReminderJ3          = "reminder_j3"
	TemplateReminderJ7          = "reminder_j7"
	TemplateReminderJ14         = "reminder_j14"
	TemplatePaymentConfirmed    = "payment_confirmed"
	TemplateServiceDeactivated  = "service_deactivated"
	TemplateServiceReactivated  = "service_reactivated"
	TemplateAppointmentBooked   = "appointment_booked"
	TemplateAppointmentReminder = "appointment_reminder"
)

var templates = map[string]Message{
	TemplateInvoiceSent: {
		Subject: "Facture {invoice_number} - Mwolo Energy",
		Body:    "Bonjour {client_name},\n\nVotre facture {invoice_number} d'un montant de {total} USD est disponible. Date limite de paiement: {due_date}.\n\nMwolo Energy Systems",
	},
	TemplateReminderJ3: {
		Subject: "Rappel: facture {invoice_number} echue",
		Body:    "Bonjour {client_name},\n\nSauf erreur de notre part, la facture {invoice_number} ({balance} USD) est impayee depuis le {due_date}. Merci de regulariser votre situation.\n\nMwolo Energy Systems",
	},
	TemplateReminderJ7: {
		Subject: "2e rappel: facture {invoice_number} impayee",
		Body:    "Bonjour {client_name},\n\nLa facture {invoice_number} ({balance} USD) reste impayee depuis le {due_date}. Sans paiement sous 7 jours, votre service pourra etre suspendu.\n\nMwolo Energy Systems",
	},
	TemplateReminderJ14: {
		Subject: "Mise en demeure: facture {invoice_number}",
		Body:    "Bonjour {client_name},\n\nMalgre nos rappels, la facture {invoice_number} ({balance} USD) est toujours impayee. La suspension de votre service est engagee. Contactez votre agence au plus vite.\n\nMwolo Energy Systems",
	},
	TemplatePaymentConfirmed: {
		Subject: "Paiement recu - facture {invoice_number}",
		Body:    "Bonjour {client_name},\n\nNous confirmons la reception de votre paiement de {amount} USD sur la facture {invoice_number}. Solde restant: {balance} USD.\n\nMwolo Energy Systems",
	},
	TemplateServiceDeactivated: {
		Subject: "Suspension de service - site {site_name}",
		Body:    "Bonjour {client_name},\n\nLe service du site {site_name} a ete suspendu pour impayes. Il sera retabli des reception du paiement.\n\nMwolo Energy Systems",
	},
	TemplateServiceReactivated: {
		Subject: "Retablissement de service - site {site_name}",
		Body:    "Bonjour {client_name},\n\nSuite a votre paiement, le service du site {site_name} a ete retabli. Merci de votre confiance.\n\nMwolo Energy Systems",
	},
	TemplateAppointmentBooked: {
		Subject: "Rendez-vous confirme - {date} {time}",
		Body:    "Bonjour {client_name},\n\nVotre rendez-vous du {date} a {time} est enregistre. Code de confirmation: {confirmation_code}.\n\nMwolo Energy Systems",
	},
	TemplateAppointmentReminder: {
		Subject: "Rappel de rendez-vous - {date} {time}",
		Body:    "Bonjour {client_name},\n\nNous vous rappelons votre rendez-vous du {date} a {time}. Code: {confirmation_code}.\n\nMwolo Energy Systems",
	},
}

// Render fills a named template with vars. Unknown template IDs return an
// error instead of sending an empty mail.
func Render(templateID string, vars Vars) (Message, error) {
	tpl, ok := templates[templateID]
	if !ok {
		return Message{}, fmt.Errorf("unknown mail template %q", templateID)
	}
	return Message{
		Subject: render(tpl.Subject, vars),
		Body:    render(tpl.Body, vars),
	}, nil
}

func render(text string, vars Vars) string {
	result := text
	for key, value := range vars {
		result = strings.ReplaceAll(result, "{"+key+"}", value)
	}
	return result
}
