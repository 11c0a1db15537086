package services

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/Luigii1506/ohara-backend/internal/models"
)

// Page geometry (A4 portrait, millimeters)
const (
	pageWidth  = 210.0
	pageMargin = 15.0
	contentW   = pageWidth - 2*pageMargin

	cardsPerDetailPage   = 4
	rowsPerBreakdownPage = 30

	detailRowHeight = 62.0
	detailRowGap    = 4.0

	detailImageW = 40.0
	detailImageH = 56.0

	cardNameMaxLen      = 35
	breakdownNameMaxLen = 40
)

const methodologyText = "Methodology: card values are the average of up to " +
	"the 3 most recent recorded TCGPlayer sales per card. Cards without " +
	"sales data are listed but contribute $0.00 to the total. The 80% and " +
	"70% figures are suggested reference points for collection buyout " +
	"negotiation and do not constitute an appraisal."

// ReportComposer lays out the collection valuation PDF: a cover page, detail
// pages with four cards each, and a breakdown table with a hard page break
// every thirty rows.
type ReportComposer struct{}

// NewReportComposer creates a new report composer
func NewReportComposer() *ReportComposer {
	return &ReportComposer{}
}

// Compose renders the full report and returns the PDF bytes.
// Images are keyed by card image URL; missing or failed entries render the
// "No Image" placeholder.
func (c *ReportComposer) Compose(data *models.CollectionReportData, images map[string]MaterializedImage) ([]byte, error) {
	doc := c.compose(data, images)
	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("pdf composition failed: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output failed: %w", err)
	}
	return buf.Bytes(), nil
}

// compose builds the document in strict page order: cover, detail pages in
// input order, breakdown pages. Split from Compose so tests can inspect the
// page structure.
func (c *ReportComposer) compose(data *models.CollectionReportData, images map[string]MaterializedImage) *fpdf.Fpdf {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(false, pageMargin)
	doc.AliasNbPages("")
	doc.SetFooterFunc(func() {
		doc.SetY(-12)
		doc.SetFont("Helvetica", "", 8)
		doc.SetTextColor(130, 130, 130)
		doc.CellFormat(0, 8, fmt.Sprintf("Page %d of {nb}", doc.PageNo()), "", 0, "C", false, 0, "")
	})

	c.coverPage(doc, data)
	c.detailPages(doc, data, images)
	c.breakdownPages(doc, data)

	return doc
}

func (c *ReportComposer) coverPage(doc *fpdf.Fpdf, data *models.CollectionReportData) {
	doc.AddPage()

	// Dark header band
	doc.SetFillColor(26, 32, 44)
	doc.Rect(0, 0, pageWidth, 48, "F")
	doc.SetTextColor(255, 255, 255)
	doc.SetFont("Helvetica", "B", 22)
	doc.SetXY(pageMargin, 12)
	doc.CellFormat(contentW, 10, "Collection Valuation Report", "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 14)
	doc.SetXY(pageMargin, 25)
	doc.CellFormat(contentW, 8, data.ListName, "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	doc.SetTextColor(180, 186, 198)
	doc.SetXY(pageMargin, 34)
	doc.CellFormat(contentW, 6, "Generated "+data.GeneratedAt.Format("January 2, 2006 15:04"), "", 1, "L", false, 0, "")

	// Summary stat box
	statTop := 58.0
	doc.SetFillColor(245, 246, 248)
	doc.SetDrawColor(210, 214, 220)
	doc.Rect(pageMargin, statTop, contentW, 26, "FD")
	stats := []struct {
		value string
		label string
	}{
		{fmt.Sprintf("%d", data.TotalCards), "Unique Cards"},
		{fmt.Sprintf("%d", data.TotalQuantity), "Total Quantity"},
		{fmt.Sprintf("%d", data.SuccessfulLookups), "Priced"},
		{fmt.Sprintf("%d", data.FailedLookups), "Without Data"},
	}
	cellW := contentW / float64(len(stats))
	for i, stat := range stats {
		x := pageMargin + float64(i)*cellW
		doc.SetTextColor(26, 32, 44)
		doc.SetFont("Helvetica", "B", 15)
		doc.SetXY(x, statTop+4)
		doc.CellFormat(cellW, 8, stat.value, "", 0, "C", false, 0, "")
		doc.SetTextColor(110, 116, 128)
		doc.SetFont("Helvetica", "", 8)
		doc.SetXY(x, statTop+14)
		doc.CellFormat(cellW, 6, stat.label, "", 0, "C", false, 0, "")
	}

	// Total value box
	totalTop := 94.0
	doc.SetFillColor(26, 32, 44)
	doc.Rect(pageMargin, totalTop, contentW, 30, "F")
	doc.SetTextColor(180, 186, 198)
	doc.SetFont("Helvetica", "", 9)
	doc.SetXY(pageMargin, totalTop+5)
	doc.CellFormat(contentW, 5, "ESTIMATED TOTAL VALUE", "", 1, "C", false, 0, "")
	doc.SetTextColor(255, 255, 255)
	doc.SetFont("Helvetica", "B", 24)
	doc.SetXY(pageMargin, totalTop+12)
	doc.CellFormat(contentW, 12, FormatPDFCurrency(data.TotalValue), "", 1, "C", false, 0, "")

	// Negotiation value boxes, side by side
	negTop := 132.0
	boxW := (contentW - 6) / 2
	negotiation := []struct {
		label string
		value float64
	}{
		{"80% Negotiation Value", data.Value80Percent},
		{"70% Negotiation Value", data.Value70Percent},
	}
	for i, neg := range negotiation {
		x := pageMargin + float64(i)*(boxW+6)
		doc.SetFillColor(245, 246, 248)
		doc.SetDrawColor(210, 214, 220)
		doc.Rect(x, negTop, boxW, 24, "FD")
		doc.SetTextColor(110, 116, 128)
		doc.SetFont("Helvetica", "", 9)
		doc.SetXY(x, negTop+4)
		doc.CellFormat(boxW, 5, neg.label, "", 0, "C", false, 0, "")
		doc.SetTextColor(26, 32, 44)
		doc.SetFont("Helvetica", "B", 16)
		doc.SetXY(x, negTop+11)
		doc.CellFormat(boxW, 9, FormatPDFCurrency(neg.value), "", 0, "C", false, 0, "")
	}

	// Methodology disclaimer
	doc.SetTextColor(110, 116, 128)
	doc.SetFont("Helvetica", "", 8)
	doc.SetXY(pageMargin, 170)
	doc.MultiCell(contentW, 4, methodologyText, "", "L", false)
}

func (c *ReportComposer) detailPages(doc *fpdf.Fpdf, data *models.CollectionReportData, images map[string]MaterializedImage) {
	for i, card := range data.Cards {
		slot := i % cardsPerDetailPage
		if slot == 0 {
			doc.AddPage()
		}
		top := pageMargin + float64(slot)*(detailRowHeight+detailRowGap)
		c.detailRow(doc, card, images, top)
	}
}

func (c *ReportComposer) detailRow(doc *fpdf.Fpdf, card models.CardValuation, images map[string]MaterializedImage, top float64) {
	doc.SetDrawColor(210, 214, 220)
	doc.Rect(pageMargin, top, contentW, detailRowHeight, "D")

	imgX := pageMargin + 3
	imgY := top + 3
	if img, ok := images[card.CardSrc]; ok && img.OK() {
		// Unique registration name per URL; fpdf caches by name so shared
		// variant images embed once
		name := "card-" + card.CardSrc
		opts := fpdf.ImageOptions{ImageType: "JPG"}
		doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))
		doc.ImageOptions(name, imgX, imgY, detailImageW, detailImageH, false, opts, 0, "")
	} else {
		doc.SetFillColor(235, 237, 240)
		doc.Rect(imgX, imgY, detailImageW, detailImageH, "F")
		doc.SetTextColor(150, 155, 165)
		doc.SetFont("Helvetica", "", 8)
		doc.SetXY(imgX, imgY+detailImageH/2-3)
		doc.CellFormat(detailImageW, 6, "No Image", "", 0, "C", false, 0, "")
	}

	textX := imgX + detailImageW + 5
	doc.SetTextColor(26, 32, 44)
	doc.SetFont("Helvetica", "B", 11)
	doc.SetXY(textX, top+4)
	doc.CellFormat(85, 6, truncateName(card.CardName, cardNameMaxLen), "", 1, "L", false, 0, "")
	doc.SetTextColor(110, 116, 128)
	doc.SetFont("Helvetica", "", 9)
	doc.SetXY(textX, top+11)
	doc.CellFormat(85, 5, card.CardCode, "", 1, "L", false, 0, "")

	// Recent sales, an error, or a no-data note
	doc.SetFont("Helvetica", "", 9)
	lineY := top + 21
	switch {
	case card.Error != "":
		doc.SetTextColor(176, 52, 52)
		doc.SetXY(textX, lineY)
		doc.CellFormat(85, 5, card.Error, "", 0, "L", false, 0, "")
	case len(card.LastSales) == 0:
		doc.SetTextColor(110, 116, 128)
		doc.SetXY(textX, lineY)
		doc.CellFormat(85, 5, "No sales data available", "", 0, "L", false, 0, "")
	default:
		doc.SetTextColor(60, 66, 78)
		for n, sale := range card.LastSales {
			doc.SetXY(textX, lineY+float64(n)*6)
			line := fmt.Sprintf("%d. %s - %s - %s",
				n+1,
				sale.OrderDate.Format("Jan 2, 2006"),
				sale.Condition,
				FormatPDFCurrency(sale.PurchasePrice))
			doc.CellFormat(85, 5, line, "", 0, "L", false, 0, "")
		}
	}

	// Right-aligned valuation panel
	panelX := pageMargin + contentW - 48
	doc.SetTextColor(110, 116, 128)
	doc.SetFont("Helvetica", "", 9)
	doc.SetXY(panelX, top+6)
	doc.CellFormat(45, 5, fmt.Sprintf("Qty: %d", card.Quantity), "", 0, "R", false, 0, "")
	doc.SetXY(panelX, top+13)
	doc.CellFormat(45, 5, "Avg: "+FormatCurrency(card.TopThreeAverage), "", 0, "R", false, 0, "")
	doc.SetTextColor(26, 32, 44)
	doc.SetFont("Helvetica", "B", 11)
	doc.SetXY(panelX, top+21)
	doc.CellFormat(45, 6, FormatPDFCurrency(card.Subtotal), "", 0, "R", false, 0, "")
}

// Breakdown table column widths (code, name, qty, average, subtotal)
var breakdownCols = []struct {
	width float64
	title string
	align string
}{
	{30, "Code", "L"},
	{80, "Card", "L"},
	{15, "Qty", "C"},
	{27.5, "Avg", "R"},
	{27.5, "Subtotal", "R"},
}

func (c *ReportComposer) breakdownPages(doc *fpdf.Fpdf, data *models.CollectionReportData) {
	doc.AddPage()
	doc.SetTextColor(26, 32, 44)
	doc.SetFont("Helvetica", "B", 14)
	doc.SetXY(pageMargin, pageMargin)
	doc.CellFormat(contentW, 8, "Card Breakdown", "", 1, "L", false, 0, "")
	c.breakdownHeader(doc)

	for i, card := range data.Cards {
		if i > 0 && i%rowsPerBreakdownPage == 0 {
			doc.AddPage()
			doc.SetY(pageMargin)
			c.breakdownHeader(doc)
		}
		c.breakdownRow(doc, card, i%2 == 1)
	}

	// Totals
	doc.Ln(2)
	doc.SetDrawColor(26, 32, 44)
	doc.Line(pageMargin, doc.GetY(), pageMargin+contentW, doc.GetY())
	doc.Ln(2)
	doc.SetFont("Helvetica", "B", 11)
	doc.SetTextColor(26, 32, 44)
	doc.CellFormat(contentW-27.5, 7, "Total", "", 0, "R", false, 0, "")
	doc.CellFormat(27.5, 7, FormatPDFCurrency(data.TotalValue), "", 1, "R", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.SetTextColor(60, 66, 78)
	doc.CellFormat(contentW-27.5, 6, "80% Negotiation Value", "", 0, "R", false, 0, "")
	doc.CellFormat(27.5, 6, FormatPDFCurrency(data.Value80Percent), "", 1, "R", false, 0, "")
	doc.CellFormat(contentW-27.5, 6, "70% Negotiation Value", "", 0, "R", false, 0, "")
	doc.CellFormat(27.5, 6, FormatPDFCurrency(data.Value70Percent), "", 1, "R", false, 0, "")
}

func (c *ReportComposer) breakdownHeader(doc *fpdf.Fpdf) {
	doc.SetFillColor(26, 32, 44)
	doc.SetTextColor(255, 255, 255)
	doc.SetFont("Helvetica", "B", 9)
	doc.SetX(pageMargin)
	for _, col := range breakdownCols {
		doc.CellFormat(col.width, 7, col.title, "", 0, col.align, true, 0, "")
	}
	doc.Ln(-1)
}

func (c *ReportComposer) breakdownRow(doc *fpdf.Fpdf, card models.CardValuation, shaded bool) {
	doc.SetFillColor(245, 246, 248)
	doc.SetTextColor(26, 32, 44)
	doc.SetFont("Helvetica", "", 9)
	doc.SetX(pageMargin)
	cells := []string{
		card.CardCode,
		truncateName(card.CardName, breakdownNameMaxLen),
		fmt.Sprintf("%d", card.Quantity),
		FormatCurrency(card.TopThreeAverage),
		FormatPDFCurrency(card.Subtotal),
	}
	for i, col := range breakdownCols {
		doc.CellFormat(col.width, 6.5, cells[i], "", 0, col.align, shaded, 0, "")
	}
	doc.Ln(-1)
}

// truncateName shortens a card name past maxLen runes with an ellipsis
func truncateName(name string, maxLen int) string {
	runes := []rune(name)
	if len(runes) <= maxLen {
		return name
	}
	return string(runes[:maxLen]) + "..."
}
