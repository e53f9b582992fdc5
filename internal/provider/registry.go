package provider

import (
	config "github.com/omnipost/omnipost-api/configs"
	"github.com/omnipost/omnipost-api/internal/apperrors"
	"github.com/omnipost/omnipost-api/internal/models"
)

// Registry holds the configured platform adapters.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(cfg config.Config) *Registry {
	return &Registry{
		providers: map[string]Provider{
			models.PlatformTwitter:   NewTwitter(cfg),
			models.PlatformFacebook:  NewFacebook(cfg),
			models.PlatformInstagram: NewInstagram(cfg),
			models.PlatformLinkedIn:  NewLinkedin(cfg),
			models.PlatformSnapchat:  NewSnapchat(cfg),
			models.PlatformTiktok:    NewTiktok(cfg),
			models.PlatformYoutube:   NewYoutube(cfg),
			models.PlatformGoogle:    NewGoogle(cfg),
		},
	}
}

func (r *Registry) Get(platform string) (Provider, error) {
	p, ok := r.providers[platform]
	if !ok {
		return nil, apperrors.UnknownPlatform(platform)
	}
	return p, nil
}
