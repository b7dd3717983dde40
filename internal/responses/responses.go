package responses

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"vipclub-bot/internal/store"
)

const cacheTTL = 10 * time.Minute

// Service resolves canned bot replies from the store, with a Redis cache in
// front so every message does not hit the database. rdb may be nil, which
// disables caching.
type Service struct {
	Store store.Store
	Redis *redis.Client
}

func NewService(st store.Store, rdb *redis.Client) *Service {
	return &Service{Store: st, Redis: rdb}
}

// Lookup returns the reply stored under key, or a placeholder telling the
// operator which key is missing.
func (s *Service) Lookup(ctx context.Context, key string) string {
	cacheKey := "resp:" + key
	if s.Redis != nil {
		if text, err := s.Redis.Get(ctx, cacheKey).Result(); err == nil {
			return text
		}
	}

	text, err := s.Store.GetResponse(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("Failed to load response %s: %v", key, err)
		}
		return fmt.Sprintf("Mensagem não configurada: %s", key)
	}

	if s.Redis != nil {
		if err := s.Redis.Set(ctx, cacheKey, text, cacheTTL).Err(); err != nil {
			log.Printf("Failed to cache response %s: %v", key, err)
		}
	}
	return text
}

// Format looks up a reply and interpolates args into it.
func (s *Service) Format(ctx context.Context, key string, args ...any) string {
	return fmt.Sprintf(s.Lookup(ctx, key), args...)
}

func (s *Service) Welcome(ctx context.Context, firstName string) string {
	return s.Format(ctx, "bem_vindo", firstName)
}

func (s *Service) Help(ctx context.Context) string {
	return s.Lookup(ctx, "help")
}

func (s *Service) PlanMenu(ctx context.Context) string {
	return s.Lookup(ctx, "botoes_planos")
}

func (s *Service) UnknownCommand(ctx context.Context) string {
	return s.Lookup(ctx, "comando_nao_reconhecido")
}

func (s *Service) Default(ctx context.Context) string {
	return s.Lookup(ctx, "mensagem_padrao")
}

func (s *Service) Apology(ctx context.Context) string {
	return s.Lookup(ctx, "mensagem_erro")
}
