package transfer

type SnapchatTokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type SnapchatMeResponse struct {
	Data struct {
		Me SnapchatUser `json:"me"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type SnapchatUser struct {
	ExternalID  string `json:"externalId"`
	DisplayName string `json:"displayName"`
	Bitmoji     struct {
		Avatar string `json:"avatar"`
	} `json:"bitmoji"`
}
