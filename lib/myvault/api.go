package myvault

import (
	"context"
	"time"

	"github.com/MarcGrol/flowershop/lib/mystore"
)

const (
	CurrentToken = "currentToken"
)

// Token is a provider access-token that takes precedence over the static api-key
type Token struct {
	ProviderName string
	ClientID     string
	ProfileID    string
	CreatedAt    time.Time
	LastModified *time.Time
	AccessToken  string `datastore:",noindex"`
	ExpiresAt    *time.Time
}

func (t Token) IsUsable(now time.Time, providerName string) bool {
	if t.ProviderName != providerName || t.AccessToken == "" {
		return false
	}
	return t.ExpiresAt == nil || now.Before(*t.ExpiresAt)
}

func TokenUID(providerName string) string {
	return CurrentToken + "_" + providerName
}

//go:generate mockgen -source=api.go -package myvault -destination vault_reader_mock.go VaultReader
type VaultReader[T any] interface {
	Get(c context.Context, uid string) (T, bool, error)
}

// New stores secrets in the regular store; datastore encrypts at rest
func New[T any](c context.Context) (VaultReader[T], func(), error) {
	return mystore.New[T](c)
}
