package auth

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

// DriveScope grants full access to the user's Drive files
const DriveScope = drive.DriveScope

// NewDriveConfig returns the installed-app OAuth2 client for Drive. The
// redirect URL is filled in by Login.
func NewDriveConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{DriveScope},
	}
}
