package domain

// SubjectType differentiates account vs agent tokens.
type SubjectType string

const (
	SubjectTypeAccount SubjectType = "account"
	SubjectTypeAgent   SubjectType = "agent"
)
