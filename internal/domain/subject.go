package domain

// SubjectType differentiates petitioner vs staff identities.
type SubjectType string

const (
	SubjectTypePetitioner SubjectType = "PETITIONER"
	SubjectTypeStaff      SubjectType = "STAFF"
)
