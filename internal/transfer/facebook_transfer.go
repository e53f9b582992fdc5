package transfer

type FacebookTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       *GraphError
}

type GraphError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	FbtraceID    string `json:"fbtrace_id"`
}

type GraphErrorResponse struct {
	Error *GraphError `json:"error"`
}

type FacebookPage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
	Category    string `json:"category"`
	InstagramBusinessAccount *struct {
		ID string `json:"id"`
	} `json:"instagram_business_account,omitempty"`
}

type FacebookPagesResponse struct {
	Data  []FacebookPage `json:"data"`
	Error *GraphError    `json:"error"`
}

type FacebookPageStats struct {
	ID             string      `json:"id"`
	FanCount       int64       `json:"fan_count"`
	FollowersCount int64       `json:"followers_count"`
	Error          *GraphError `json:"error"`
}

type FacebookPublishResponse struct {
	ID     string      `json:"id"`
	PostID string      `json:"post_id"`
	Error  *GraphError `json:"error"`
}
