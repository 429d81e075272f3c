package api

// ClientKeys are the OAuth client credentials a host issued to this
// application, plus the endpoints discovered for that host.
type ClientKeys struct {
	ClientID              string
	ClientSecret          string
	RegistrationEndpoint  string
	AuthorizationEndpoint string
	TokenEndpoint         string
}

// AreValid is true once a client id has been issued.
func (k ClientKeys) AreValid() bool {
	return k.ClientID != ""
}

// OAuthServer is the discovered authorization server metadata of a host.
type OAuthServer struct {
	RegistrationEndpoint  string
	AuthorizationEndpoint string
	TokenEndpoint         string
}
