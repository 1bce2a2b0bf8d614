package config

// NewAsanaForTest creates an Asana config for testing purposes
func NewAsanaForTest(token, baseURL string) *Asana {
	return &Asana{
		token:   token,
		baseURL: baseURL,
	}
}
