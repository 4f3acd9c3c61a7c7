package models

// MemberSearchCriteria narrows a member search. Zero values mean "not
// filtered". Take == 0 fetches no rows and only computes the count.
type MemberSearchCriteria struct {
	MemberType     string
	Keyword        string
	ObjectIDs      []string
	OuterIDs       []string
	OrganizationID string

	// DeepSearch extends the organization filter to all transitive
	// descendants instead of direct members only.
	DeepSearch bool

	Skip int
	Take int
}
