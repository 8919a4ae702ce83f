package models

// StopInfo is the human-readable record of a stop. Coordinates are carried
// through for presentation.
type StopInfo struct {
	Stop   string    `json:"stop"`
	NameEN string    `json:"name_en"`
	NameTC string    `json:"name_tc"`
	NameSC string    `json:"name_sc,omitempty"`
	Lat    FlexFloat `json:"lat"`
	Long   FlexFloat `json:"long"`
}

// Empty reports whether the upstream returned a blank stop object.
func (s StopInfo) Empty() bool {
	return s.Stop == ""
}
