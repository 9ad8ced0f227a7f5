package entity

// TargetCarrier represents an airline whose flights are kept
type TargetCarrier struct {
	Code string
	Name string
}

// DefaultTargetCarriers is the allow-list used when none is configured
var DefaultTargetCarriers = []TargetCarrier{
	{Code: "MU", Name: "东方航空"},
	{Code: "MF", Name: "厦门航空"},
	{Code: "DZ", Name: "东海航空"},
	{Code: "CX", Name: "国泰航空"},
	{Code: "KE", Name: "大韩航空"},
}

// CarrierCodes returns the codes of the given carriers in order
func CarrierCodes(carriers []TargetCarrier) []string {
	codes := make([]string, 0, len(carriers))
	for _, c := range carriers {
		codes = append(codes, c.Code)
	}
	return codes
}
