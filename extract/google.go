package extract

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/botarhythm/my-shopify-ga-app-sub001/config"
)

// newGoogleOAuthClient builds an HTTP client that exchanges the stored
// refresh token for access tokens as needed. Both the GA4 Data API and the
// Google Ads API authenticate this way; only the scopes differ.
func newGoogleOAuthClient(ctx context.Context, secrets *config.Secrets, scopes ...string) *http.Client {
	conf := &oauth2.Config{
		ClientID:     secrets.GoogleClientID,
		ClientSecret: secrets.GoogleClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       scopes,
	}
	token := &oauth2.Token{RefreshToken: secrets.GoogleRefreshToken}
	return oauth2.NewClient(ctx, conf.TokenSource(ctx, token))
}
