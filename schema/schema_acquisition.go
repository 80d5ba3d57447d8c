package schema

// InterferogramInfo describes one daisy-chain interferogram.
type InterferogramInfo struct {
	Name      string `json:"name"`       // YYYYMMDD_YYYYMMDD
	Baseline  int    `json:"baseline"`   // temporal baseline in days
	TimeValue int    `json:"time_value"` // days since the first acquisition
	New       bool   `json:"new,omitempty"`
}

// AcquisitionReport is the daisy chain built from a set of acquisition dates.
type AcquisitionReport struct {
	Acquisitions   []string            `json:"acquisitions"`
	Interferograms []InterferogramInfo `json:"interferograms"`
	NewCount       int                 `json:"new_count"`
}
