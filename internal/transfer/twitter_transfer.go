package transfer

type TwitterUser struct {
	IDStr           string `json:"id_str"`
	Name            string `json:"name"`
	ScreenName      string `json:"screen_name"`
	ProfileImageURL string `json:"profile_image_url_https"`
	FollowersCount  int64  `json:"followers_count"`
	FriendsCount    int64  `json:"friends_count"`
	StatusesCount   int64  `json:"statuses_count"`
}

type TwitterTweet struct {
	IDStr string `json:"id_str"`
	Text  string `json:"text"`
}

type TwitterErrorResponse struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}
