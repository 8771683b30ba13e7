package mailbox

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"mailtriage/internal/models"
)

var sampleSubjects = []string{
	"New order request for Q2",
	"Price inquiry for product XYZ",
	"Technical support needed",
	"Meeting request",
	"Order confirmation #12345",
	"Product catalog request",
	"Invoice query",
	"Partnership opportunity",
	"Order amendment",
}

var sampleNames = []string{
	"John Smith",
	"Sarah Johnson",
	"Michael Brown",
	"Emily Davis",
	"David Wilson",
	"Jessica Taylor",
	"Robert Miller",
	"Jennifer Anderson",
	"Christopher Thomas",
	"Lisa Martinez",
}

var sampleDomains = []string{"example.com", "company.org", "business.net", "corporate.co"}

var categories = []models.Category{
	models.CategoryOrder,
	models.CategoryInquiry,
	models.CategorySupport,
	models.CategoryOther,
}

const (
	pdfContentType  = "application/pdf"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// GenerateEmails builds a deterministic sample inbox for the given seed,
// sorted newest first. Order-category messages always carry at least one PDF
// attachment so the processing pipeline has something to work with.
func GenerateEmails(count int, seed int64) []*models.Email {
	if count <= 0 {
		count = 25
	}
	rng := rand.New(rand.NewSource(seed))
	now := time.Now()

	emails := make([]*models.Email, 0, count)
	for i := 0; i < count; i++ {
		category := categories[rng.Intn(len(categories))]
		name := sampleNames[rng.Intn(len(sampleNames))]
		address := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@" + sampleDomains[rng.Intn(len(sampleDomains))]

		attachments := buildAttachments(rng, i, category)
		emails = append(emails, &models.Email{
			ID:      fmt.Sprintf("email-%d", i),
			Subject: sampleSubjects[rng.Intn(len(sampleSubjects))],
			From:    models.EmailAddress{Name: name, Address: address},
			To: []models.EmailAddress{
				{Name: "Sales Team", Address: "sales@yourcompany.com"},
			},
			Body:           sampleBody(category),
			ReceivedAt:     now.Add(-time.Duration(rng.Intn(7*24*60)) * time.Minute),
			HasAttachments: len(attachments) > 0,
			Attachments:    attachments,
			Category:       category,
			IsRead:         rng.Float64() > 0.3,
		})
	}

	sort.Slice(emails, func(a, b int) bool {
		return emails[a].ReceivedAt.After(emails[b].ReceivedAt)
	})
	return emails
}

func buildAttachments(rng *rand.Rand, emailIdx int, category models.Category) []*models.Attachment {
	n := 0
	if category == models.CategoryOrder {
		n = rng.Intn(2) + 1
	} else if rng.Float64() > 0.5 {
		n = rng.Intn(3) + 1
	}

	attachments := make([]*models.Attachment, 0, n)
	for j := 0; j < n; j++ {
		// first attachment of an order email is always the processable PDF
		isPDF := (category == models.CategoryOrder && j == 0) || rng.Float64() > 0.3
		att := &models.Attachment{
			ID:    fmt.Sprintf("attachment-%d-%d", emailIdx, j),
			Size:  int64(rng.Intn(5_000_000) + 10_000),
			IsPDF: isPDF,
		}
		if isPDF {
			att.Name = fmt.Sprintf("document-%d.pdf", j)
			att.ContentType = pdfContentType
		} else if rng.Float64() > 0.5 {
			att.Name = fmt.Sprintf("file-%d.xlsx", j)
			att.ContentType = xlsxContentType
		} else {
			att.Name = fmt.Sprintf("file-%d.docx", j)
			att.ContentType = docxContentType
		}
		attachments = append(attachments, att)
	}
	return attachments
}

func sampleBody(category models.Category) string {
	switch category {
	case models.CategoryOrder:
		return `Dear Sales Team,

I would like to place an order for the following items:
- 5x Product A (SKU: PA-12345)
- 3x Product B (SKU: PB-67890)
- 2x Product C (SKU: PC-24680)

Please confirm availability and expected delivery time.

Thank you,
[Customer Name]`
	case models.CategoryInquiry:
		return `Hello,

I'm interested in learning more about your product range. Specifically, I'd like to know:

1. Do you offer volume discounts?
2. What are your delivery timeframes?
3. Do you have a catalog you could share?

Looking forward to your response.

Best regards,
[Customer Name]`
	case models.CategorySupport:
		return `Support Team,

I'm experiencing an issue with my recent order #ORD-12345. The shipment appears to be missing one item that was listed on the invoice.

Could you please look into this matter as soon as possible?

Thank you,
[Customer Name]`
	default:
		return `Hello,

I hope this email finds you well. I wanted to touch base regarding our previous conversation about potential collaboration opportunities.

Would you be available for a brief call next week to discuss further?

Best regards,
[Customer Name]`
	}
}
