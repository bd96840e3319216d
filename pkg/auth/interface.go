package auth

// Claims are the identity attributes attached to an accepted credential.
type Claims struct {
	Subject string
	Email   string
	Raw     map[string]interface{}
}

// Validator checks a caller-supplied shared secret or token.
type Validator interface {
	Validate(secret string) (*Claims, error)
}
