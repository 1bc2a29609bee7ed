package common

// AuthorizationHeaderName is the HTTP header carrying the bearer access
// token on authenticated requests.
const AuthorizationHeaderName = "Authorization"

// TokenTypeBearer is the token_type value returned with every issued token.
const TokenTypeBearer = "bearer"
