package ports

import (
	"assaykit/domain/assay"
)

// PlateReader provides read access to a plate layout (standards and samples)
type PlateReader interface {
	ReadPlate() (*assay.Plate, error)
}

// ResultWriter persists a completed analysis run
type ResultWriter interface {
	WriteResults(path string, run *assay.AnalysisRun) error
}
