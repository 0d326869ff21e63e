package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMetadata_Financial(t *testing.T) {
	text := `HB 2 appropriates $1,200,000 to the Department of Education and
$300 to the Office of Budget for fiscal year 2025 and fiscal year 2024.
The department of education reports again for Fiscal Year 2025.`

	m := ExtractMetadata(DocTypeFinancial, text)

	assert.Equal(t, "budget_bill", m[MetaDocumentCategory])
	assert.Equal(t, "2024, 2025", m[MetaFiscalYears])
	assert.Equal(t, "true", m[MetaContainsFinancialData])
	assert.Equal(t, "2", m[MetaDollarAmountCount])
	assert.Equal(t, "department of education, office of budget", m[MetaDepartments])
}

func TestExtractMetadata_FinancialPlainText(t *testing.T) {
	m := ExtractMetadata(DocTypeFinancial, "the weather is nice; thbbt")
	assert.Empty(t, m)
}

func TestExtractMetadata_Legislative(t *testing.T) {
	text := "Amends sb 12 and HB45. See Section 3, section 3 and section 7."

	m := ExtractMetadata(DocTypeLegislative, text)

	assert.Equal(t, "HB45, SB 12", m[MetaBillNumbers])
	assert.Equal(t, "2", m[MetaSectionCount])
	assert.NotContains(t, m, MetaDocumentCategory)
}

func TestExtractMetadata_General(t *testing.T) {
	assert.Empty(t, ExtractMetadata(DocTypeGeneral, "HB 2 costs $5"))
	assert.Empty(t, ExtractMetadata("unknown", "HB 2 costs $5"))
}
