package extract

import "regexp"

// The pattern lists below are ordered: the first expression that matches a
// field wins. The set is closed; changing it is a release event because it
// shifts extraction behavior on the whole archive.

func compilePatterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile("(?im)" + e)
	}
	return out
}

var invoiceNumberPatterns = compilePatterns(
	`pavadz[īi]me\s+nr\.?\s*([A-Z0-9\-/]+)`,
	`invoice\s+no\.?\s*[:\s]*([A-Z0-9\-/]+)`,
	`dokuments?\s+nr\.?\s*([A-Z0-9\-/]+)`,
	`nr\.?\s*([A-Z0-9]{2,}/\d{2,4})`,
	`pv\s+([A-Z0-9\-/]+)`,
	`re[kķ]ins?\s+nr\.?\s*([A-Z0-9\-/]+)`,
	`r[eē][kķ]ina\s*nr\.?\s*([A-Z0-9\-/]+)`,
	`marts\s+Nr\.\s*([A-Z0-9/\-]+)`,
	`(\b[A-Z]{2,}\d{7,}\b)`,
	`(\b\d{8}\b)`,
)

// Supplier patterns range from brand-specific recognizers for frequent
// senders (including fragmented OCR renderings of their names) down to
// generic legal-form captures.
var supplierPatterns = compilePatterns(
	`lindstr[oō]m\s*SIA`,
	`SIA\s*lindstr[oō]m`,
	`lindstr[oō]m`,
	`(?:Liep[aā]j[aā]s?\s*)?(?:P[eē]ter[ti]|peter[ti]|pēter[ti])[^\n\r]*?(?:tirgus?|TIRGUS?|ertirg)`,
	`peterstirgus\.lv`,
	`ertirg\s*uss?\s*SIA`,
	`(?:3\s*ļ\.\s*)?Liep[aā]\s*[^\n\r]*?P[eē]ter`,
	`piegādātājs[\s:]*([^\n\r,]+?)(?:\s*Reg|$|\n)`,
	`supplier[\s:]*([^\n\r,]+?)(?:\s*Reg|$|\n)`,
	`SIA\s*([A-ZĀĒĪŌŪšģķļņčžāēīōū\-\s"]{2,30})(?:\s*Reg|\s*nr|\s*$|\n)`,
	`SIA\s*"([^"]{2,30})"`,
	`AS\s*"([^"]{2,30})"`,
	`AS\s+([A-ZĀĒĪŌŪšģķļņčžāēīōū\-\s]{2,30})(?:\s*Reg|\s*$|\n)`,
	`Z/S\s+([A-ZĀĒĪŌŪšģķļņčžāēīōū\-\s]{2,20})(?:\s*Reg|\s*$|\n)`,
	`egadatajs[,\s]*SIA\s*([A-ZĀĒĪŌŪšģķļņčžāēīōū\-\s]{2,20})`,
	`([A-ZĀĒĪŌŪšģķļņčžāēīōū\-]{2,15})\s*Reg\.\s*Nr\.\s*\d+`,
	`SIA\s*([A-ZĀĒĪŌŪšģķļņčžāēīōū\-]{2,15})\s*Reg`,
)

var datePatterns = compilePatterns(
	`(\d{4})[./\-](\d{1,2})[./\-](\d{1,2})`,
	`(\d{1,2})[./\-](\d{1,2})[./\-](\d{4})`,
	`(\d{4})\.\s*gada\s*(\d{1,2})\.\s*(janvāris|februāris|marts|aprīlis|maijs|jūnijs|jūlijs|augusts|septembris|oktobris|novembris|decembris)`,
	`datums?[\s:]*(\d{1,2}[./\-]\d{1,2}[./\-]\d{2,4})`,
	`izrakstibanasdat\.?\s*(\d{1,2})\.?\s*(\d{1,2})\.?\s*(\d{4})`,
)

var deliveryDatePatterns = compilePatterns(
	`piegādes?\s+datums?[:\s]*(\d{1,2}[./\-]\d{1,2}[./\-]\d{2,4})`,
	`delivery\s+date[:\s]*(\d{1,2}[./\-]\d{1,2}[./\-]\d{2,4})`,
	`delivered?[:\s]*(\d{1,2}[./\-]\d{1,2}[./\-]\d{2,4})`,
)

var totalAmountPatterns = compilePatterns(
	`kop[aā]\s*[:\-]?\s*([0-9\s,.]+)\s*EUR`,
	`total\s*[:\-]?\s*([0-9\s,.]+)`,
	`summa\s*kop[aā]\s*([0-9\s,.]+)`,
	`summakopa\s*\(EUR\)\s*([0-9\s,.]+)`,
	`kopaapmaksai\s*EUR\s*([0-9\s,.]+)`,
	`KOPĀ\s*([0-9\s,.]+)`,
	`summa\s*bez\s*atlaides\s*([0-9\s,.]+)`,
	`apmaksai\s*\(EUR\)\.?\s*([0-9\s,.]+)`,
	`([0-9,.]+)\s*€`,
)

var subtotalAmountPatterns = compilePatterns(
	`(?:summa bez PVN|subtotal|net amount)[:\s]*([0-9,. ]+)`,
	`bez PVN[:\s]*([0-9,. ]+)`,
	`(?:^|\n)[^\n]*bez\s*PVN[^\n]*?([0-9,. ]+)`,
)

var vatAmountPatterns = compilePatterns(
	`PVN\s*21%\s*[:(]?\s*([0-9\s,.]+)`,
	`VAT\s*21%\s*[:(]?\s*([0-9\s,.]+)`,
	`nodoklis\s*([0-9\s,.]+)`,
	`PVN\s*([0-9\s,.]+)`,
)

var supplierRegNumberPatterns = compilePatterns(
	`(?:reg|reģ).*?nr[.\s]*[:\-]?\s*([A-Z]{0,2}\d{8,11})`,
	`(?:registration|VAT).*?no[.\s]*[:\-]?\s*([A-Z]{0,2}\d{8,11})`,
	`PVNnr[.\s]*([A-Z]{2}\d{8,11})`,
	`([A-Z]{2}\d{11})`,
)

var supplierAddressPatterns = compilePatterns(
	`(?:adrese|address)[:\s]*([^\n\r]+(?:LV-\d{4})[^\n\r]*)`,
	`([A-ZĀČĒĢĪĶĻŅŠŪŽa-zāčēģīķļņšūž\s\d,.-]+,\s*[A-ZĀČĒĢĪĶĻŅŠŪŽa-zāčēģīķļņšūž\s]+,\s*LV-\d{4})`,
	`([^\n\r]*iela\s*\d+[^\n\r]*(?:LV-\d{4})?)`,
)

var supplierBankAccountPatterns = compilePatterns(
	`(?:konts|account|IBAN)[:\s]*([A-Z]{2}\d{2}[A-Z0-9]{4,24})`,
	`([A-Z]{2}\d{2}[A-Z]{4}\d{11,20})`,
)

var recipientPatterns = compilePatterns(
	`(?:piegāde uz|delivery to)[:\s]*\n?\s*([^\n\r]+(?:SIA|AS|IK|UAB)[^\n\r]*)`,
	`(?:piegāde uz|delivery to)[:\s]*\n?\s*([A-ZĀČĒĢĪĶĻŅŠŪŽ][^\n\r]+)`,
	`(?:saņēmējs|pircējs|klients|buyer|recipient)[:\s]*([^\n\r]+)`,
)

/// Recipient detail patterns scan across lines: the value often sits a few
// lines below the keyword that introduces the party.
var recipientRegNumberPatterns = compilePatterns(
	`(?s)(?:pircēja|klients|saņēmējs).*?(?:reg|reģ).*?nr[.\s]*[:\-]?\s*([A-Z]{0,2}\d{8,11})`,
	`(?s)(?:bill to|billed to).*?(?:reg|vat).*?no[.\s]*[:\-]?\s*([A-Z]{0,2}\d{8,11})`,
)

var recipientAddressPatterns = compilePatterns(
	`(?s)(?:pircēja|klients|saņēmējs).*?(?:adrese|address)[:\s]*([^\n\r]+)`,
	`(?s)(?:bill to|billed to).*?address[:\s]*([^\n\r]+)`,
)

var recipientBankAccountPatterns = compilePatterns(
	`(?s)(?:pircēja|klients).*?(?:konts|account)[:\s]*([A-Z]{2}\d{2}[A-Z0-9]{4,24})`,
)

// Table section: either the span between a column-header line and the
// totals line, or any contiguous run of lines carrying money values.
var tableSectionPatterns = compilePatterns(
	`(?s)(?:nosaukums|apraksts|description|item).*?\n(.*?)(?:\n.*?(?:kopā|total|summa))`,
	`(?s)(?:^|\n)((?:.*?\d+[.,]\d{2}.*?\n)+)`,
)

// Product row patterns, most specific first: full row with a product code,
// full row without one, then bare name-and-total.
var productRowPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(\w+)\s+(.+?)\s+(\d+(?:[.,]\d+)?)\s+(\S+)\s+(\d+[.,]\d{2})\s+(\d+[.,]\d{2})$`),
	regexp.MustCompile(`^(.+?)\s+(\d+(?:[.,]\d+)?)\s+(\S+)\s+(\d+[.,]\d{2})\s+(\d+[.,]\d{2})$`),
	regexp.MustCompile(`^(.+?)\s+(\d+[.,]\d{2})$`),
}

var productRowConfidences = []float64{0.9, 0.8, 0.6}

var latvianMonths = map[string]int{
	"janvāris": 1, "februāris": 2, "marts": 3, "aprīlis": 4,
	"maijs": 5, "jūnijs": 6, "jūlijs": 7, "augusts": 8,
	"septembris": 9, "oktobris": 10, "novembris": 11, "decembris": 12,
}
