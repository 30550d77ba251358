package app

type DomainError struct {
	Status int
	Msg    string
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return e.Msg
}

func domainError(status int, msg string) *DomainError {
	return &DomainError{Status: status, Msg: msg}
}
