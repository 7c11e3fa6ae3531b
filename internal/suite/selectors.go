package suite

// Element selectors for the export workflow UI. IDs are stable contract
// points of the target application; label-bearing selectors (heading,
// export trigger) are built from config because the labels are localized.
const (
	selModal             = "#csvExportModal"
	selModalTitle        = "#csvExportModalLabel"
	selStartDate         = "#startDate"
	selEndDate           = "#endDate"
	selIncludeRevenue    = "#includeRevenue"
	selIncludeExpenses   = "#includeExpenses"
	selEstimatedRecords  = "#estimatedRecords"
	selStandardFormat    = "#standardCsv"
	selAlternateFormat   = "#germanExcel"
	selFormatDescription = "#formatDescription"
	selExportConfirm     = "#exportButton"
	selProgressOverlay   = "#exportProgressOverlay"
)

// Valid and deliberately inverted date ranges used by the date-range step.
const (
	validStartDate    = "2024-01-01"
	validEndDate      = "2024-12-31"
	invertedStartDate = "2024-12-01"
	invertedEndDate   = "2024-11-01"
)
