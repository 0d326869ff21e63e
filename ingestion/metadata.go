package ingestion

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Document types that drive metadata extraction.
const (
	DocTypeFinancial   = "financial"
	DocTypeLegislative = "legislative"
	DocTypeGeneral     = "general"
)

// Extracted metadata keys.
const (
	MetaDocumentCategory      = "document_category"
	MetaFiscalYears           = "fiscal_years"
	MetaContainsFinancialData = "contains_financial_data"
	MetaDollarAmountCount     = "dollar_amount_count"
	MetaDepartments           = "departments"
	MetaBillNumbers           = "bill_numbers"
	MetaSectionCount          = "section_count"
)

var (
	budgetBillPattern = regexp.MustCompile(`house bill|\bhb\b`)
	fiscalYearPattern = regexp.MustCompile(`fiscal year (\d{4})`)
	dollarPattern     = regexp.MustCompile(`\$[\d,]+`)
	departmentPattern = regexp.MustCompile(`(?:department|office|division) of \w+`)
	billNumberPattern = regexp.MustCompile(`[HS]B\s*\d+`)
	sectionPattern    = regexp.MustCompile(`section \d+`)
)

// ExtractMetadata derives document-level metadata from text according to docType.
// Unknown document types yield no metadata.
func ExtractMetadata(docType, text string) map[string]string {
	switch docType {
	case DocTypeFinancial:
		return extractFinancial(text)
	case DocTypeLegislative:
		return extractLegislative(text)
	default:
		return map[string]string{}
	}
}

func extractFinancial(text string) map[string]string {
	metadata := map[string]string{}
	lower := strings.ToLower(text)

	if budgetBillPattern.MatchString(lower) {
		metadata[MetaDocumentCategory] = "budget_bill"
	}

	var years []string
	for _, m := range fiscalYearPattern.FindAllStringSubmatch(lower, -1) {
		years = append(years, m[1])
	}
	if len(years) > 0 {
		metadata[MetaFiscalYears] = joinDistinct(years)
	}

	if amounts := dollarPattern.FindAllString(text, -1); len(amounts) > 0 {
		metadata[MetaContainsFinancialData] = "true"
		metadata[MetaDollarAmountCount] = strconv.Itoa(len(amounts))
	}

	if departments := departmentPattern.FindAllString(lower, -1); len(departments) > 0 {
		metadata[MetaDepartments] = joinDistinct(departments)
	}

	return metadata
}

func extractLegislative(text string) map[string]string {
	metadata := map[string]string{}

	if bills := billNumberPattern.FindAllString(strings.ToUpper(text), -1); len(bills) > 0 {
		metadata[MetaBillNumbers] = joinDistinct(bills)
	}

	if sections := sectionPattern.FindAllString(strings.ToLower(text), -1); len(sections) > 0 {
		metadata[MetaSectionCount] = strconv.Itoa(len(distinct(sections)))
	}

	return metadata
}

func distinct(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}

func joinDistinct(values []string) string {
	return strings.Join(distinct(values), ", ")
}
