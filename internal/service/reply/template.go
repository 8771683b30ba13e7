package reply

import (
	"fmt"
	"strings"

	"mailtriage/internal/models"
)

// OrderTemplate renders the static order reply from the comparison results.
// The internal recommendation is always non-empty.
func OrderTemplate(pc *PromptContext) *models.GeneratedReply {
	order := pc.Order
	summary := pc.Summary

	greeting := pc.SenderName
	if greeting == "" {
		greeting = "Customer"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", greeting)
	if order.OrderNumber != "" {
		fmt.Fprintf(&b, "Thank you for your order request (REF: %s). ", order.OrderNumber)
	} else {
		b.WriteString("Thank you for your order request. ")
	}
	fmt.Fprintf(&b, "We have reviewed the %d requested item(s) against our current pricing.\n\n", len(order.Items))

	switch {
	case summary.TotalDifferential > 0:
		fmt.Fprintf(&b, "The quoted prices are above our internal reference by %s %.2f in total.\n",
			currency(order), summary.TotalDifferential)
	case summary.TotalDifferential < 0:
		fmt.Fprintf(&b, "The quoted prices are below our internal reference by %s %.2f in total.\n",
			currency(order), -summary.TotalDifferential)
	default:
		b.WriteString("The quoted prices match our internal reference exactly.\n")
	}

	if breakdown := itemBreakdown(order, currency(order)); breakdown != "" {
		b.WriteString("\nItem breakdown:\n")
		b.WriteString(breakdown)
	}

	fmt.Fprintf(&b, "\nThe total order value is %s %.2f.", currency(order), summary.TotalOrderValue)
	if summary.DifferentialPct != nil {
		fmt.Fprintf(&b, " The overall price differential is %.2f%%.", *summary.DifferentialPct)
	}
	b.WriteString("\n\nPlease let us know if you would like to proceed with this order as outlined.\n\nBest regards,\nSales Team")

	return &models.GeneratedReply{
		Subject:        replySubject(pc.Subject),
		Body:           b.String(),
		Recommendation: recommendation(summary),
		Source:         models.ReplySourceTemplate,
	}
}

// itemBreakdown lists only items with a nonzero differential.
func itemBreakdown(order *models.OrderRecord, cur string) string {
	var b strings.Builder
	for _, item := range order.Items {
		if item.Differential == nil || *item.Differential == 0 {
			continue
		}
		direction := "above"
		diff := *item.Differential
		if diff < 0 {
			direction = "below"
			diff = -diff
		}
		fmt.Fprintf(&b, "- %s (%s): quoted %s %.2f per unit, %s internal reference by %s %.2f\n",
			item.Description, item.ProductCode, cur, item.UnitPrice, direction, cur, diff)
	}
	return b.String()
}

// recommendation branches on the sign of the total differential.
func recommendation(summary *models.DifferentialSummary) string {
	switch {
	case summary.TotalDifferential > 0:
		pct := ""
		if summary.DifferentialPct != nil {
			pct = fmt.Sprintf(" (%.2f%%)", *summary.DifferentialPct)
		}
		return fmt.Sprintf("Customer quote is above internal reference%s. Room to negotiate: consider confirming at quoted prices or offering a modest concession.", pct)
	case summary.TotalDifferential < 0:
		return "Customer quote is below internal reference. Flag to a manager for margin review before confirming."
	default:
		return "Quoted prices match internal reference. Order is ready to process."
	}
}

// GenericTemplate renders the category reply used when no order data applies.
func GenericTemplate(pc *PromptContext) *models.GeneratedReply {
	greeting := pc.SenderName
	if greeting == "" {
		greeting = "Customer"
	}

	var body string
	switch pc.Category {
	case models.CategoryInquiry:
		body = fmt.Sprintf(`Dear %s,

Thank you for your interest in our product range. We do offer volume discounts on larger orders, and our standard delivery window is 5-10 business days. Our current catalog is attached for your reference.

Please let us know if you have any further questions.

Best regards,
Sales Team`, greeting)
	case models.CategorySupport:
		body = fmt.Sprintf(`Dear %s,

Thank you for reaching out. We are sorry to hear about the issue with your order. Our support team has opened a case and will follow up within one business day with next steps.

Best regards,
Support Team`, greeting)
	default:
		body = fmt.Sprintf(`Dear %s,

Thank you for your message. We have received it and will get back to you shortly.

Best regards,
Sales Team`, greeting)
	}

	return &models.GeneratedReply{
		Subject: replySubject(pc.Subject),
		Body:    body,
		Source:  models.ReplySourceTemplate,
	}
}

func replySubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "RE: your message"
	}
	if strings.HasPrefix(strings.ToUpper(subject), "RE:") {
		return subject
	}
	return "RE: " + subject
}

func currency(order *models.OrderRecord) string {
	if order.Currency == "" {
		return "USD"
	}
	return order.Currency
}
