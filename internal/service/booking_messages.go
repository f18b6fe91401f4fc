package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/bookline/bot-server-go/internal/model"
)

// User-facing copy for the booking flow. Operators can override the
// confirmation and cancellation messages per bot; everything else is fixed.

const (
	msgAskName        = "Great, let's book your appointment! What's your name?"
	msgInvalidName    = "That doesn't look like a valid name. Please use letters only (2-100 characters)."
	msgAskBookingFor  = "Who is this appointment for? Reply \"self\" or the person's name."
	msgInvalidFor     = "Please reply \"self\" or a valid name."
	msgAskGender      = "Please select a gender:\n1. Male\n2. Female\n3. Other"
	msgInvalidGender  = "Please reply 1, 2, 3 or male/female/other."
	msgInvalidService = "I couldn't match that to a service. Please reply with a number from the list or the service name."
	msgInvalidDate    = "Please pick one of the listed dates, reply \"today\"/\"tomorrow\", or send a date like 2026-09-15. Past dates can't be booked."
	msgInvalidSlot    = "Please reply with the number of one of the listed times."
	msgAskConfirm     = "Reply \"confirm\" to book it, or \"cancel\" to stop."
	msgSlotTaken      = "Sorry, that time was just taken by someone else. Here are the current openings:"
	msgNoSlotsOnDate  = "Unfortunately there are no open times on that date. Please choose another day:"
	msgNoServices     = "Sorry, online booking isn't available right now. Please contact the business directly."
	msgGenericFault   = "Sorry, something went wrong on our side. Please send that again."

	defaultConfirmationTemplate = "You're booked! 🎉\n{service} on {date} at {time} for {name}.\nYour booking reference is {reference}."
	defaultCancellationTemplate = "No problem, I've cancelled the booking request. Message us anytime to start again."
)

const displayDateLayout = "Mon 02 Jan"

func buildServiceList(services []model.Service) string {
	var b strings.Builder
	b.WriteString("Here are our services:\n")
	for i, svc := range services {
		fmt.Fprintf(&b, "%d. %s - $%.2f (%d min)\n", i+1, svc.Name, float64(svc.PriceCents)/100, svc.DurationMin)
	}
	b.WriteString("Which one would you like? Reply with a number or the name.")
	return b.String()
}

func buildDateList(window []time.Time) string {
	var b strings.Builder
	b.WriteString("What day works for you?\n")
	for i, d := range window {
		label := d.Format(displayDateLayout)
		switch i {
		case 0:
			label += " (today)"
		case 1:
			label += " (tomorrow)"
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, label)
	}
	b.WriteString("Reply with a number, \"today\", \"tomorrow\" or a date (YYYY-MM-DD).")
	return b.String()
}

func buildSlotList(date time.Time, slots []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Available times on %s:\n", date.Format(displayDateLayout))
	for i, slot := range slots {
		fmt.Fprintf(&b, "%d. %s\n", i+1, slot)
	}
	b.WriteString("Reply with the number of the time you'd like.")
	return b.String()
}

func buildConfirmationSummary(data model.DataMap) string {
	var b strings.Builder
	b.WriteString("Please confirm your booking:\n")
	fmt.Fprintf(&b, "Name: %s\n", data[model.DataCustomerName])
	if v := data[model.DataBookingFor]; v != "" && v != "self" {
		fmt.Fprintf(&b, "For: %s\n", v)
	}
	fmt.Fprintf(&b, "Service: %s\n", data[model.DataServiceName])
	fmt.Fprintf(&b, "Date: %s\n", data[model.DataBookingDate])
	fmt.Fprintf(&b, "Time: %s\n", data[model.DataBookingTime])
	b.WriteString(msgAskConfirm)
	return b.String()
}

// renderTemplate substitutes {placeholder} tokens in operator templates.
func renderTemplate(tpl string, values map[string]string) string {
	out := tpl
	for k, v := range values {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}
