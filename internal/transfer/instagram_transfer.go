package transfer

type InstagramTokenResponse struct {
	AccessToken string `json:"access_token"`
	UserID      int64  `json:"user_id"`
	ErrorType   string `json:"error_type"`
	ErrorMsg    string `json:"error_message"`
}

type InstagramLongLivedToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type InstagramUserInfo struct {
	UserID         string      `json:"user_id"`
	ID             string      `json:"id"`
	Username       string      `json:"username"`
	Name           string      `json:"name"`
	ProfilePicture string      `json:"profile_picture_url"`
	FollowersCount int64       `json:"followers_count"`
	MediaCount     int64       `json:"media_count"`
	Error          *GraphError `json:"error"`
}

type InstagramMediaContainer struct {
	ID    string      `json:"id"`
	Error *GraphError `json:"error"`
}
