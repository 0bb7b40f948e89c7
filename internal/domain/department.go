package domain

// Department identifies the fixed service categories grievances are routed to.
type Department string

const (
	DepartmentWater       Department = "WATER"
	DepartmentElectricity Department = "ELECTRICITY"
	DepartmentRTO         Department = "RTO"
	DepartmentMunicipal   Department = "MUNICIPAL"
	DepartmentRevenue     Department = "REVENUE"
)

// Departments lists every routable service category.
func Departments() []Department {
	return []Department{
		DepartmentWater,
		DepartmentElectricity,
		DepartmentRTO,
		DepartmentMunicipal,
		DepartmentRevenue,
	}
}

// Valid reports whether d is a known service category.
func (d Department) Valid() bool {
	switch d {
	case DepartmentWater, DepartmentElectricity, DepartmentRTO, DepartmentMunicipal, DepartmentRevenue:
		return true
	}
	return false
}
