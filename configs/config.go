package config

import "os"

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
}

// Credentials holds one platform's OAuth app registration. RedirectURI is
// optional; when empty the callback URL is derived from BaseCallbackURL.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type Config struct {
	Twitter   Credentials
	Facebook  Credentials
	Instagram Credentials
	LinkedIn  Credentials
	Snapchat  Credentials
	Tiktok    Credentials
	Google    Credentials

	BaseCallbackURL string
	FrontendURL     string
	PostgresURI     string
	RedisURI        string
	R2              R2
	SecretKey       string
	CookieName      string
}

func LoadConfig() *Config {
	return &Config{
		Twitter: Credentials{
			ClientID:     getEnv("TWITTER_API_KEY", ""),
			ClientSecret: getEnv("TWITTER_API_SECRET", ""),
			RedirectURI:  getEnv("TWITTER_CALLBACK_URL", ""),
		},
		Facebook: Credentials{
			ClientID:     getEnv("FACEBOOK_APP_ID", ""),
			ClientSecret: getEnv("FACEBOOK_APP_SECRET", ""),
			RedirectURI:  getEnv("FACEBOOK_CALLBACK_URL", ""),
		},
		Instagram: Credentials{
			ClientID:     getEnv("INSTAGRAM_CLIENT_ID", ""),
			ClientSecret: getEnv("INSTAGRAM_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("INSTAGRAM_CALLBACK_URL", ""),
		},
		LinkedIn: Credentials{
			ClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
			ClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("LINKEDIN_CALLBACK_URL", ""),
		},
		Snapchat: Credentials{
			ClientID:     getEnv("SNAPCHAT_CLIENT_ID", ""),
			ClientSecret: getEnv("SNAPCHAT_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("SNAPCHAT_CALLBACK_URL", ""),
		},
		Tiktok: Credentials{
			ClientID:     getEnv("TIKTOK_CLIENT_KEY", ""),
			ClientSecret: getEnv("TIKTOK_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("TIKTOK_CALLBACK_URL", ""),
		},
		Google: Credentials{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("GOOGLE_CALLBACK_URL", ""),
		},
		BaseCallbackURL: getEnv("BASE_CALLBACK_URL", "http://localhost:3000"),
		FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:5173"),
		PostgresURI:     getEnv("POSTGRES_URI", ""),
		RedisURI:        getEnv("REDIS_URI", ""),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "omnipost_session"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
