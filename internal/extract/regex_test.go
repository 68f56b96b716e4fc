package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInvoice = `Pavadzīme Nr. LIN-2024/001
Piegādātājs: SIA Lindström
Reg. Nr. 40003237187
Adrese: Brīvības iela 10, Rīga, LV-1010
Konts: LV97HABA0012345678910
Saņēmējs: SIA Veikals
Datums: 01.02.2024
Kopā: 31,46 EUR
PVN 21% 5,46
`

func TestRegexExtractSampleInvoice(t *testing.T) {
	rec := NewRegexExtractor(nil).Extract(sampleInvoice)

	assert.Equal(t, "LIN-2024/001", rec.InvoiceNumber)
	assert.Equal(t, "SIA Lindström", rec.SupplierName)
	assert.Equal(t, "40003237187", rec.SupplierRegNumber)
	assert.Equal(t, "Brīvības iela 10, Rīga, LV-1010", rec.SupplierAddress)
	assert.Equal(t, "LV97HABA0012345678910", rec.SupplierBankAccount)
	assert.Equal(t, "SIA Veikals", rec.RecipientName)

	require.NotNil(t, rec.InvoiceDate)
	assert.Equal(t, "2024-02-01", rec.InvoiceDate.ISO())
	require.NotNil(t, rec.DeliveryDate) // mirrors the invoice date
	assert.Equal(t, "2024-02-01", rec.DeliveryDate.ISO())

	require.NotNil(t, rec.TotalAmount)
	assert.Equal(t, "31.46", rec.TotalAmount.String())
	require.NotNil(t, rec.VATAmount)
	assert.Equal(t, "5.46", rec.VATAmount.String())
	assert.Equal(t, "EUR", rec.Currency)

	assert.InDelta(t, 0.9, rec.Confidence(FieldSupplierName), 1e-9)
	assert.InDelta(t, 0.9, rec.Confidence(FieldRecipientName), 1e-9)
	assert.InDelta(t, 0.8, rec.Confidence(FieldTotalAmount), 1e-9)
	assert.Greater(t, rec.OverallConfidence, 0.5)
}

func TestRegexExtractEmptyText(t *testing.T) {
	rec := NewRegexExtractor(nil).Extract("   ")
	assert.Empty(t, rec.SupplierName)
	assert.Equal(t, "EUR", rec.Currency)
	assert.Zero(t, rec.OverallConfidence)
}

func TestSupplierBrandCanonicalization(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Piegādātājs: SIA Lindstrom\nKopā 5,00 EUR", "SIA Lindström"},
		{"e-pasts info@peterstirgus.lv\nSIA Tirgus Reg. Nr. 40001234567", "Liepājas Pētertirgus"},
		{"Liepājas Pētertirgus AS\nReg. Nr. 40001234567", "Liepājas Pētertirgus"},
		{"Piegādātājs: SIA TIM-T\nKopā 5,00 EUR", "SIA TIM-T"},
	}
	for _, tt := range tests {
		name, conf := extractSupplier(tt.text)
		assert.Equal(t, tt.want, name, tt.text)
		assert.GreaterOrEqual(t, conf, 0.7, tt.text)
	}
}

func TestSupplierGenericStripsLegalForm(t *testing.T) {
	name, conf := extractSupplier("Piegādātājs: SIA \"Ozoli\"\n")
	assert.Equal(t, "Ozoli", name)
	assert.InDelta(t, 0.8, conf, 1e-9) // no legal form left, length bonus only
}

func TestRecipientRejectsAddressLines(t *testing.T) {
	name, _ := extractRecipient("Saņēmējs: Brīvības iela 10, Rīga\n")
	assert.Empty(t, name)

	name, conf := extractRecipient("Saņēmējs: SIA Veikals\n")
	assert.Equal(t, "SIA Veikals", name)
	assert.InDelta(t, 0.9, conf, 1e-9)
}

func TestDateLatvianMonthName(t *testing.T) {
	d, ok := extractInvoiceDate("Izrakstīts 2025. gada 7. maijs")
	require.True(t, ok)
	assert.Equal(t, "2025-05-07", d.ISO())
}

func TestDateNumericOrderings(t *testing.T) {
	d, ok := extractInvoiceDate("Datums 2024-03-15 apstiprināts")
	require.True(t, ok)
	assert.Equal(t, "2024-03-15", d.ISO())

	d, ok = extractInvoiceDate("Datums 15.03.2024 apstiprināts")
	require.True(t, ok)
	assert.Equal(t, "2024-03-15", d.ISO())
}

func TestDateInvalidComponentsSkipped(t *testing.T) {
	// 99.99.2024 parses as no pattern's valid date; nothing is returned.
	_, ok := extractInvoiceDate("Datums 99.99.2024")
	assert.False(t, ok)
}

func TestDeliveryDateExplicit(t *testing.T) {
	text := "Datums: 01.02.2024\nPiegādes datums: 03.02.24"
	d, ok := extractDeliveryDate(text)
	require.True(t, ok)
	assert.Equal(t, "2024-02-03", d.ISO()) // two-digit year lands in the 2000s
}

func TestSubtotalRequiresPositive(t *testing.T) {
	amt, ok := firstPositiveAmount(subtotalAmountPatterns, "Summa bez PVN: 26,00")
	require.True(t, ok)
	assert.Equal(t, "26", amt.String())

	_, ok = firstPositiveAmount(subtotalAmountPatterns, "Summa bez PVN: 0,00")
	assert.False(t, ok)
}

func TestCurrencyDetection(t *testing.T) {
	assert.Equal(t, "EUR", extractCurrency("Kopā 10,00 EUR"))
	assert.Equal(t, "EUR", extractCurrency("Kopā 10,00 €"))
	assert.Equal(t, "USD", extractCurrency("Total 10.00 USD"))
	assert.Equal(t, "USD", extractCurrency("Total $10.00"))
	assert.Equal(t, "EUR", extractCurrency("bez valūtas"))
}

func TestParseProductRows(t *testing.T) {
	section := `Paklāji 2 gab 6,25 12,50
īss
1234567 Mats melns 2 gab 6,25 12,50
Piegādes pakalpojums 5,00`

	products := parseProductRows(section)
	require.Len(t, products, 3)

	assert.Equal(t, "Paklāji", products[0].Name)
	assert.Equal(t, "2", products[0].Quantity.String())
	assert.Equal(t, "gab", products[0].Unit)
	assert.Equal(t, "6.25", products[0].UnitPrice.String())
	assert.Equal(t, "12.5", products[0].TotalPrice.String())
	assert.InDelta(t, 0.8, products[0].ExtractionConfidence, 1e-9)
	assert.Equal(t, 1, products[0].LineNumber)
	assert.Equal(t, "Paklāji 2 gab 6,25 12,50", products[0].RawText)

	assert.Equal(t, "1234567", products[1].ProductCode)
	assert.Equal(t, "Mats melns", products[1].Name)
	assert.InDelta(t, 0.9, products[1].ExtractionConfidence, 1e-9)
	assert.Equal(t, 3, products[1].LineNumber)

	assert.Equal(t, "Piegādes pakalpojums", products[2].Name)
	assert.Equal(t, "5", products[2].TotalPrice.String())
	assert.InDelta(t, 0.6, products[2].ExtractionConfidence, 1e-9)
}

func TestExtractProductsFromHeadedTable(t *testing.T) {
	text := `Nosaukums Daudzums Cena Summa
Paklāji 2 gab 6,25 12,50
Kopā: 12,50 EUR`

	products := extractProducts(text)
	require.NotEmpty(t, products)
	assert.Equal(t, "Paklāji", products[0].Name)
}
