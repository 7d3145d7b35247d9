package excel

// Sheet names of plate and results workbooks
const (
	SheetStandards      = "Standards"
	SheetSamples        = "Samples"
	SheetFit            = "Fit"
	SheetConcentrations = "Concentrations"
	SheetStatistics     = "Statistics"
)

// Row kinds of the single-table CSV layout
const (
	KindStandard = "standard"
	KindSample   = "sample"
)

// RawRowData represents a row of raw cells keyed by lower-cased header
type RawRowData map[string]string

// SheetData represents one table read from a sheet or CSV file
type SheetData struct {
	Headers []string     // Column headers as written
	Rows    []RawRowData // Data rows
}

// Column aliases accepted for each field, lower-cased
var (
	concentrationColumns = []string{"concentration", "conc", "x"}
	absorbanceColumns    = []string{"absorbance", "od", "y"}
	conditionColumns     = []string{"condition", "group"}
	dayColumns           = []string{"day", "timepoint"}
	kindColumns          = []string{"kind", "type"}
)
