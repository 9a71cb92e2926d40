package session

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/dmitrijs2005/erpadmin/internal/common"
)

var _ oauth2.TokenSource = (*Session)(nil)

// Token makes the session an oauth2.TokenSource, so business API clients
// can be built with oauth2.NewClient. The token is renewed first when due.
func (s *Session) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
	defer cancel()

	access, err := s.ValidAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	exp, _ := s.ExpiresAt()
	return &oauth2.Token{
		AccessToken: access,
		TokenType:   common.BearerScheme,
		Expiry:      exp,
	}, nil
}
